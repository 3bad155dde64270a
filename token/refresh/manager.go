package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jrsteele09/crec-session/internal/config"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/pkg/errors"
)

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo    Repo
	config  config.OAuthConfig
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.OAuthConfig, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		config:  cfg,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create generates a new refresh token and stores it. Any earlier token of the
// same subject is dropped (single refresh token per subject).
func (m *Manager) Create(clientID, subjectID string) (string, error) {
	if existing, err := m.repo.GetBySubjectID(subjectID); err == nil && existing != nil {
		if err := m.repo.Delete(existing.Token); err != nil {
			return "", errors.Wrap(err, "[refresh.Manager.Create] delete existing")
		}
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[refresh.Manager.Create] rand.Read")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:     tokenStr,
		SubjectID: subjectID,
		ClientID:  clientID,
		Iat:       m.nowFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "[refresh.Manager.Create] store")
	}

	return tokenStr, nil
}

// Rotate validates token and replaces it with a fresh one for the same subject.
// The old token is unusable afterwards.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, string, error) {
	stored, err := m.repo.Get(token)
	if err != nil {
		return nil, "", errs.ErrInvalidRefreshToken
	}
	if m.IsExpired(stored) {
		_ = m.repo.Delete(token)
		return nil, "", errs.ErrRefreshTokenExpired
	}
	next, err := m.Create(stored.ClientID, stored.SubjectID)
	if err != nil {
		return nil, "", err
	}
	return stored, next, nil
}

// Get retrieves a refresh token from storage
func (m *Manager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// IsExpired checks if a refresh token outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.config.GetDefaultRefreshTokenExpiry()
}
