package session

import "context"

// Principal is the profile an authenticated session acts as.
type Principal interface {
	PrincipalID() string
	HasPermission(permission string) bool
}

// Credentials are what a user submits to log in: email and password for admin
// users, an access key for FabLab members.
type Credentials struct {
	Email     string `json:"email" validate:"required_without=AccessKey,omitempty,email"`
	Password  string `json:"password" validate:"required_with=Email,max=256"`
	AccessKey string `json:"accessKey" validate:"required_without=Email,omitempty,min=4,max=128"`
}

// Grant is the result of a successful authentication.
type Grant[P Principal] struct {
	AccessToken  string
	RefreshToken string
	Profile      P
}

// TokenPair is the result of a refresh exchange. An empty RefreshToken keeps the
// current one.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Authenticator validates credentials against an identity provider. Rejected
// credentials must be reported as ErrInvalidCredentials; transport failures as
// ErrNetwork or ErrTimeout.
type Authenticator[P Principal] interface {
	Authenticate(ctx context.Context, creds Credentials) (*Grant[P], error)
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}
