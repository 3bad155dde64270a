package refresh

import (
	"time"
)

// StoredRefreshToken is the backend-side record of a refresh token.
// The client only receives Token (a random string).
type StoredRefreshToken struct {
	Token     string    // The random token string (sent to client)
	SubjectID string    // User the token was minted for
	ClientID  string    // Client that requested it
	Iat       time.Time // Issued at
}

// Repo stores refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetBySubjectID(subjectID string) (*StoredRefreshToken, error)
}
