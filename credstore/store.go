package credstore

import (
	"context"
	"encoding/json"
	"time"

	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/internal/utils"
	"github.com/pkg/errors"
)

// Field keys of the session record, before prefixing.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyExpiresAt    = "expiresAt"
	KeyLastActivity = "lastActivity"
)

var recordKeys = []string{KeyToken, KeyRefreshToken, KeyUser, KeyExpiresAt, KeyLastActivity}

// Record is the session record as persisted.
type Record struct {
	AccessToken    string
	RefreshToken   string
	User           json.RawMessage
	ExpiresAt      time.Time
	LastActivityAt time.Time

	// Corrupt lists keys that were present but unparseable when loaded.
	Corrupt []string
}

// Empty reports whether no field of the record is present.
func (r Record) Empty() bool {
	return r.AccessToken == "" && r.RefreshToken == "" && len(r.User) == 0 &&
		r.ExpiresAt.IsZero() && r.LastActivityAt.IsZero() && len(r.Corrupt) == 0
}

// Store is the credential store of one session instance. Two instances sharing a
// backend are kept apart by their key prefix.
type Store struct {
	backend Backend
	prefix  string
}

func New(backend Backend, prefix string) *Store {
	return &Store{backend: backend, prefix: prefix}
}

// Key returns the backend key of a record field.
func (s *Store) Key(field string) string {
	return s.prefix + field
}

func storageErr(err error, where string) error {
	return errors.Wrap(errs.Wrapf(errs.ErrStorageUnavailable, "%v", err), where)
}

// Save writes every field of rec in one atomic write. An empty refresh token is
// written as an empty value so no token from an earlier session survives.
func (s *Store) Save(ctx context.Context, rec Record) error {
	entries := map[string]string{
		s.Key(KeyToken):        rec.AccessToken,
		s.Key(KeyRefreshToken): rec.RefreshToken,
		s.Key(KeyUser):         string(rec.User),
		s.Key(KeyExpiresAt):    utils.UnixMillis(rec.ExpiresAt),
		s.Key(KeyLastActivity): utils.UnixMillis(rec.LastActivityAt),
	}
	if err := s.backend.SetMany(ctx, entries); err != nil {
		return storageErr(err, "[Store.Save]")
	}
	return nil
}

// Load reads the whole record. Backend failures are returned; unparseable
// timestamps are reported in Record.Corrupt and left zero.
func (s *Store) Load(ctx context.Context) (Record, error) {
	var rec Record
	for _, field := range recordKeys {
		value, ok, err := s.backend.Get(ctx, s.Key(field))
		if err != nil {
			return Record{}, storageErr(err, "[Store.Load]")
		}
		if !ok || value == "" {
			continue
		}
		switch field {
		case KeyToken:
			rec.AccessToken = value
		case KeyRefreshToken:
			rec.RefreshToken = value
		case KeyUser:
			rec.User = json.RawMessage(value)
		case KeyExpiresAt, KeyLastActivity:
			t, err := utils.ParseUnixMillis(value)
			if err != nil {
				rec.Corrupt = append(rec.Corrupt, field)
				continue
			}
			if field == KeyExpiresAt {
				rec.ExpiresAt = t
			} else {
				rec.LastActivityAt = t
			}
		}
	}
	return rec, nil
}

// Token returns the stored access token, or "" when absent.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.get(ctx, KeyToken)
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

func (s *Store) get(ctx context.Context, field string) (string, error) {
	value, _, err := s.backend.Get(ctx, s.Key(field))
	if err != nil {
		return "", storageErr(err, "[Store.get]")
	}
	return value, nil
}

// Touch records user activity at t. It writes nothing once the record has been
// cleared, so a late touch cannot leave a stray key behind.
func (s *Store) Touch(ctx context.Context, t time.Time) error {
	entries := map[string]string{s.Key(KeyLastActivity): utils.UnixMillis(t)}
	if _, err := s.backend.SetIfPresent(ctx, s.Key(KeyToken), entries); err != nil {
		return storageErr(err, "[Store.Touch]")
	}
	return nil
}

// ReplaceTokens swaps the token pair and expiry in place. It fails with
// ErrNotFound once the record has been cleared.
func (s *Store) ReplaceTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	entries := map[string]string{
		s.Key(KeyToken):        accessToken,
		s.Key(KeyRefreshToken): refreshToken,
		s.Key(KeyExpiresAt):    utils.UnixMillis(expiresAt),
	}
	written, err := s.backend.SetIfPresent(ctx, s.Key(KeyToken), entries)
	if err != nil {
		return storageErr(err, "[Store.ReplaceTokens]")
	}
	if !written {
		return errors.Wrap(errs.ErrNotFound, "[Store.ReplaceTokens] session record is gone")
	}
	return nil
}

// Clear removes every key of the record in one atomic delete.
func (s *Store) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(recordKeys))
	for _, field := range recordKeys {
		keys = append(keys, s.Key(field))
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		return storageErr(err, "[Store.Clear]")
	}
	return nil
}
