package remote

import (
	"context"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/crec-session/auth"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/session"
	"github.com/jrsteele09/crec-session/users"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var (
	_ session.Authenticator[*users.User] = (*AdminProvider)(nil)
	_ session.Refresher                  = (*AdminProvider)(nil)
)

// userClaims is the userinfo document of an admin user.
type userClaims struct {
	Subject     string   `json:"sub"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// AdminProvider authenticates admins with the OAuth2 password grant against the
// backend's token endpoint and reads the profile from its userinfo endpoint.
type AdminProvider struct {
	issuer string
	opts   options

	lock     sync.Mutex
	provider *oidc.Provider
	oauth    *oauth2.Config
}

func NewAdminProvider(issuer string, opts ...Option) *AdminProvider {
	return &AdminProvider{issuer: trimBaseURL(issuer), opts: newOptions(opts)}
}

func (p *AdminProvider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.opts.httpClient)
}

// discover fetches the OpenID configuration once and caches the result.
func (p *AdminProvider) discover(ctx context.Context) (*oidc.Provider, *oauth2.Config, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.provider != nil {
		return p.provider, p.oauth, nil
	}

	provider, err := oidc.NewProvider(p.clientContext(ctx), p.issuer)
	if err != nil {
		return nil, nil, transportError(err, "[AdminProvider.discover] OpenID configuration")
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	p.provider = provider
	p.oauth = &oauth2.Config{
		ClientID: auth.ClientID,
		Endpoint: endpoint,
		Scopes:   []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
	}
	p.opts.logger.Debug().Str("issuer", p.issuer).Str("token_url", endpoint.TokenURL).Msg("identity provider discovered")
	return p.provider, p.oauth, nil
}

func (p *AdminProvider) Authenticate(ctx context.Context, creds session.Credentials) (*session.Grant[*users.User], error) {
	if creds.Email == "" {
		return nil, errors.Wrap(session.ErrInvalidCredentials, "[AdminProvider.Authenticate] email is required")
	}
	provider, cfg, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	ctx = p.clientContext(ctx)
	tok, err := cfg.PasswordCredentialsToken(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, grantError(err, session.ErrInvalidCredentials, "[AdminProvider.Authenticate]")
	}

	info, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return nil, transportError(err, "[AdminProvider.Authenticate] userinfo")
	}
	var claims userClaims
	if err := info.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[AdminProvider.Authenticate] decoding userinfo")
	}

	return &session.Grant[*users.User]{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Profile: &users.User{
			ID:          claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.Name,
			Role:        users.RoleType(claims.Role),
			Permissions: claims.Permissions,
		},
	}, nil
}

// Refresh runs the refresh_token grant. The backend rotates the refresh token.
func (p *AdminProvider) Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	_, cfg, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, grantError(err, session.ErrAuthExpired, "[AdminProvider.Refresh]")
	}
	return &session.TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// grantError maps a token endpoint failure: a rejected grant becomes kind,
// anything without a response is a transport failure.
func grantError(err error, kind error, where string) error {
	var retrieveErr *oauth2.RetrieveError
	if errs.As(err, &retrieveErr) && retrieveErr.Response != nil {
		if rejected(retrieveErr.Response.StatusCode) {
			return errors.Wrap(errs.Wrapf(kind, "%s", retrieveErr.ErrorCode), where)
		}
		if retrieveErr.Response.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(errs.Wrapf(errs.ErrNetwork, "throttled"), where)
		}
		return errors.Wrapf(err, "%s status %d", where, retrieveErr.Response.StatusCode)
	}
	return transportError(err, where)
}
