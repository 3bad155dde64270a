// Package auth is the credential service behind the portal: the placeholder
// password and access-key checks, access token issue and refresh token rotation.
// It backs both the in-process identity providers and the mock HTTP backend.
package auth

import (
	"strings"
	"time"

	"github.com/jrsteele09/crec-session/internal/config"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/token"
	"github.com/jrsteele09/crec-session/token/refresh"
	"github.com/jrsteele09/crec-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ClientID is recorded against every refresh token the service mints.
const ClientID = "crec-portal"

type Repos struct {
	Users         users.UserRepo
	Members       members.Repo
	RefreshTokens refresh.Repo
}

// TokenSet is the result of a successful login, verify or refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string // empty for members
	ExpiresAt    time.Time
}

// ExpiresIn returns the remaining lifetime of the access token in seconds.
func (t *TokenSet) ExpiresIn(now time.Time) int {
	return int(t.ExpiresAt.Sub(now).Seconds())
}

type Service struct {
	repos   Repos
	issuer  *token.Issuer
	refresh *refresh.Manager
	config  config.OAuthConfig
	nowFunc func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = nowFunc
	}
}

func NewService(repos Repos, issuer *token.Issuer, cfg config.OAuthConfig, options ...ServiceOption) *Service {
	s := &Service{
		repos:   repos,
		issuer:  issuer,
		config:  cfg,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.refresh = refresh.NewManager(repos.RefreshTokens, cfg, refresh.WithNowFunc(s.nowFunc))
	return s
}

func (s *Service) Now() time.Time {
	return s.nowFunc()
}

func invalid(reason error, where string) error {
	return errors.Wrap(errs.Wrapf(errs.ErrInvalidCredentials, "%v", reason), where)
}

// Login checks an admin email and password and issues an access and refresh
// token. The returned user carries no password hash.
func (s *Service) Login(email, password string) (*users.User, *TokenSet, error) {
	user, err := s.repos.Users.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil, invalid(UserNotFoundErr, "[Service.Login]")
		}
		return nil, nil, errors.Wrap(err, "[Service.Login] userRepo.GetByEmail")
	}
	if user.Blocked {
		return nil, nil, invalid(UserBlockedErr, "[Service.Login]")
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, invalid(UserPasswordsDontMatchErr, "[Service.Login]")
	}

	user.LastLogin = s.nowFunc()
	if err := s.repos.Users.Upsert(user); err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Login] userRepo.Upsert")
	}

	tokens, err := s.issueUser(user)
	if err != nil {
		return nil, nil, err
	}
	refreshToken, err := s.refresh.Create(ClientID, user.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Login]")
	}
	tokens.RefreshToken = refreshToken

	log.Info().Str("user", user.ID).Msg("admin login")
	return user.Public(), tokens, nil
}

// VerifyAccessKey checks a FabLab member access key and issues an access token.
// A lapsed subscription still verifies; reservations are gated separately.
func (s *Service) VerifyAccessKey(accessKey string) (*members.Member, *TokenSet, error) {
	member, err := s.repos.Members.GetByAccessKey(accessKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil, invalid(UnknownAccessKeyErr, "[Service.VerifyAccessKey]")
		}
		return nil, nil, errors.Wrap(err, "[Service.VerifyAccessKey] memberRepo.GetByAccessKey")
	}

	accessToken, exp, err := s.issuer.Issue(token.Subject{
		ID:          member.ID,
		Kind:        token.KindMember,
		Permissions: member.Permissions,
	}, s.config.GetMemberAccessTokenExpiry())
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.VerifyAccessKey]")
	}

	log.Info().Str("member", member.ID).Bool("subscriptionActive", member.SubscriptionActive(s.nowFunc())).Msg("fablab verify")
	return member.Public(), &TokenSet{AccessToken: accessToken, ExpiresAt: exp}, nil
}

// Refresh rotates refreshToken and issues a new access token for its user.
func (s *Service) Refresh(refreshToken string) (*TokenSet, error) {
	stored, next, err := s.refresh.Rotate(refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh]")
	}

	user, err := s.repos.Users.GetByID(stored.SubjectID)
	if err != nil || user.Blocked {
		_ = s.refresh.Delete(next)
		return nil, errors.Wrap(errs.ErrInvalidRefreshToken, "[Service.Refresh] subject no longer valid")
	}

	tokens, err := s.issueUser(user)
	if err != nil {
		return nil, err
	}
	tokens.RefreshToken = next
	return tokens, nil
}

// Revoke drops a refresh token. Unknown tokens are ignored.
func (s *Service) Revoke(refreshToken string) error {
	if _, err := s.refresh.Get(refreshToken); err != nil {
		return nil
	}
	return errors.Wrap(s.refresh.Delete(refreshToken), "[Service.Revoke]")
}

func (s *Service) issueUser(user *users.User) (*TokenSet, error) {
	accessToken, exp, err := s.issuer.Issue(token.Subject{
		ID:          user.ID,
		Kind:        token.KindUser,
		Role:        string(user.Role),
		Permissions: user.Permissions,
	}, s.config.GetDefaultAccessTokenExpiry())
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueUser]")
	}
	return &TokenSet{AccessToken: accessToken, ExpiresAt: exp}, nil
}

// Authenticate parses a bearer token and checks that its subject still exists
// and is not blocked.
func (s *Service) Authenticate(rawToken string) (*token.Claims, error) {
	claims, err := s.issuer.Parse(rawToken)
	if err != nil {
		return nil, err
	}
	switch claims.Kind {
	case token.KindUser:
		user, err := s.repos.Users.GetByID(claims.Subject)
		if err != nil || user.Blocked {
			return nil, errors.Wrap(errs.ErrInvalidToken, SubjectMismatchErr.Error())
		}
	case token.KindMember:
		if _, err := s.repos.Members.GetByID(claims.Subject); err != nil {
			return nil, errors.Wrap(errs.ErrInvalidToken, SubjectMismatchErr.Error())
		}
	default:
		return nil, errors.Wrap(errs.ErrInvalidToken, SubjectMismatchErr.Error())
	}
	return claims, nil
}

// UserInfo returns the OIDC UserInfo claims of the admin user behind rawToken.
func (s *Service) UserInfo(rawToken string) (map[string]interface{}, error) {
	claims, err := s.Authenticate(rawToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != token.KindUser {
		return nil, errors.Wrap(errs.ErrInvalidToken, "[Service.UserInfo] not a user token")
	}
	user, err := s.repos.Users.GetByID(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.UserInfo]")
	}

	return map[string]interface{}{
		"sub":            user.ID,
		"email":          user.Email,
		"email_verified": true,
		"name":           user.DisplayName,
		"role":           string(user.Role),
		"permissions":    user.Permissions,
	}, nil
}

// Member returns the member behind a member token's subject.
func (s *Service) Member(id string) (*members.Member, error) {
	member, err := s.repos.Members.GetByID(id)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Member]")
	}
	return member.Public(), nil
}
