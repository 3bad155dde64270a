package fakememberrepo

import (
	"sync"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/members"
)

var _ members.Repo = (*FakeMemberRepo)(nil)

type FakeMemberRepo struct {
	members map[string]*members.Member
	keys    map[string]string // access key hash to member id
	lock    sync.RWMutex
}

func NewFakeMemberRepo() *FakeMemberRepo {
	return &FakeMemberRepo{
		members: make(map[string]*members.Member),
		keys:    make(map[string]string),
	}
}

func (mr *FakeMemberRepo) Upsert(member *members.Member) error {
	mr.lock.Lock()
	defer mr.lock.Unlock()

	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	mr.members[member.ID] = member
	if member.AccessKeyHash != "" {
		mr.keys[member.AccessKeyHash] = member.ID
	}
	return nil
}

func (mr *FakeMemberRepo) GetByID(id string) (*members.Member, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()

	m, ok := mr.members[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return m, nil
}

func (mr *FakeMemberRepo) GetByAccessKey(accessKey string) (*members.Member, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()

	id, ok := mr.keys[members.HashAccessKey(accessKey)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return mr.members[id], nil
}
