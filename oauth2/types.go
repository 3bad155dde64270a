package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// PasswordGrant exchanges an admin email and password for tokens.
	// Example: grant_type=password&username=admin@crec.edu&password=...
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for new tokens. The refresh
	// token rotates on every use.
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenType is the access token type of every token response.
const TokenType = "Bearer"

// Error codes of the token endpoint error response (RFC 6749 section 5.2).
const (
	ErrorInvalidRequest       = "invalid_request"
	ErrorInvalidGrant         = "invalid_grant"
	ErrorUnsupportedGrantType = "unsupported_grant_type"
	ErrorInvalidToken         = "invalid_token"
	ErrorInsufficientScope    = "insufficient_scope"
	ErrorSlowDown             = "slow_down"
	ErrorServerError          = "server_error"
)

// ErrorResponse is the JSON body of a failed OAuth2 request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
