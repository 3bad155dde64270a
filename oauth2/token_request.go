package oauth2

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
	ErrMissingParameter     = errors.New("missing required parameter")
)

// TokenRequest holds the form parameters of a token endpoint request.
type TokenRequest struct {
	GrantType GrantType

	// ClientID is optional: the portal is a public client.
	ClientID string

	// Username and Password are the admin credentials of the password grant.
	// Security: never log Password
	Username string
	Password string

	// RefreshToken is required for the refresh_token grant. It rotates on use.
	RefreshToken string

	Scope string
}

// ParseTokenRequest reads a token request from parsed form values and checks the
// parameters its grant type requires.
func ParseTokenRequest(form url.Values) (TokenRequest, error) {
	req := TokenRequest{
		GrantType:    GrantType(form.Get("grant_type")),
		ClientID:     form.Get("client_id"),
		Username:     form.Get("username"),
		Password:     form.Get("password"),
		RefreshToken: form.Get("refresh_token"),
		Scope:        form.Get("scope"),
	}

	switch req.GrantType {
	case PasswordGrant:
		if req.Username == "" || req.Password == "" {
			return req, fmt.Errorf("%w: username and password", ErrMissingParameter)
		}
	case RefreshTokenGrant:
		if req.RefreshToken == "" {
			return req, fmt.Errorf("%w: refresh_token", ErrMissingParameter)
		}
	default:
		return req, ErrUnsupportedGrantType
	}
	return req, nil
}
