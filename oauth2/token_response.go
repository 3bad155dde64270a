package oauth2

// TokenResponse represents the response from an OAuth2 token request (RFC 6749).
type TokenResponse struct {
	// AccessToken is the bearer credential for protected resources.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is only present for grants that allow renewal.
	RefreshToken string `json:"refresh_token,omitempty"`

	Scope string `json:"scope,omitempty"`
}
