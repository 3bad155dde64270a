package identity

import (
	"time"

	"github.com/jrsteele09/crec-session/auth"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/users"
	"github.com/pkg/errors"
)

// Seeded credentials of the placeholder directory.
const (
	AdminEmail        = "admin@crec.edu"
	AdminPassword     = "admin123"
	EditorEmail       = "editor@crec.edu"
	EditorPassword    = "editor123"
	ActiveMemberKey   = "FAB-ACTIVE-001"
	LapsedMemberKey   = "FAB-LAPSED-001"
	activeMemberID    = "member-active-001"
	lapsedMemberID    = "member-lapsed-001"
	activeMemberTerm  = 180 * 24 * time.Hour
	lapsedMemberSince = 30 * 24 * time.Hour
)

type seedUser struct {
	id          string
	email       string
	password    string
	displayName string
	role        users.RoleType
}

var seedUsers = []seedUser{
	{id: "user-admin-001", email: AdminEmail, password: AdminPassword, displayName: "CREC Administrator", role: users.RoleAdmin},
	{id: "user-editor-001", email: EditorEmail, password: EditorPassword, displayName: "CREC Editor", role: users.RoleEditor},
}

// Seed fills repos with the placeholder admin users and FabLab members.
// Subscription dates are relative to now.
func Seed(repos auth.Repos, now time.Time) error {
	for _, su := range seedUsers {
		hash, err := users.HashPassword(su.password)
		if err != nil {
			return errors.Wrap(err, "[identity.Seed] hash password")
		}
		if err := repos.Users.Upsert(&users.User{
			ID:           su.id,
			Email:        su.email,
			DisplayName:  su.displayName,
			Role:         su.role,
			Permissions:  users.PermissionsForRole(su.role),
			PasswordHash: hash,
		}); err != nil {
			return errors.Wrap(err, "[identity.Seed] upsert user")
		}
	}

	for _, m := range []*members.Member{
		{
			ID:                    activeMemberID,
			Name:                  "Ada Maker",
			Email:                 "ada@example.org",
			Tier:                  members.TierMaker,
			SubscriptionExpiresAt: now.Add(activeMemberTerm).UTC().Truncate(time.Second),
			Permissions:           []string{members.PermReserve},
			AccessKeyHash:         members.HashAccessKey(ActiveMemberKey),
		},
		{
			ID:                    lapsedMemberID,
			Name:                  "Lin Lapsed",
			Email:                 "lin@example.org",
			Tier:                  members.TierBasic,
			SubscriptionExpiresAt: now.Add(-lapsedMemberSince).UTC().Truncate(time.Second),
			Permissions:           []string{members.PermReserve},
			AccessKeyHash:         members.HashAccessKey(LapsedMemberKey),
		},
	} {
		if err := repos.Members.Upsert(m); err != nil {
			return errors.Wrap(err, "[identity.Seed] upsert member")
		}
	}
	return nil
}
