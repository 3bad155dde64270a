// Package identity holds the in-process identity providers: the placeholder
// credential check of the portal, backed by a seeded auth.Service.
package identity

import (
	"context"

	"github.com/jrsteele09/crec-session/auth"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/session"
	"github.com/jrsteele09/crec-session/users"
	"github.com/pkg/errors"
)

var (
	_ session.Authenticator[*users.User]     = (*AdminProvider)(nil)
	_ session.Refresher                      = (*AdminProvider)(nil)
	_ session.Authenticator[*members.Member] = (*MemberProvider)(nil)
)

// AdminProvider authenticates admin users by email and password.
type AdminProvider struct {
	svc *auth.Service
}

func NewAdminProvider(svc *auth.Service) *AdminProvider {
	return &AdminProvider{svc: svc}
}

func (p *AdminProvider) Authenticate(ctx context.Context, creds session.Credentials) (*session.Grant[*users.User], error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "[AdminProvider.Authenticate]")
	}
	if creds.Email == "" {
		return nil, errors.Wrap(session.ErrInvalidCredentials, "[AdminProvider.Authenticate] email is required")
	}
	user, tokens, err := p.svc.Login(creds.Email, creds.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[AdminProvider.Authenticate]")
	}
	return &session.Grant[*users.User]{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Profile:      user,
	}, nil
}

func (p *AdminProvider) Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "[AdminProvider.Refresh]")
	}
	tokens, err := p.svc.Refresh(refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "[AdminProvider.Refresh]")
	}
	return &session.TokenPair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

// MemberProvider verifies FabLab members by access key.
type MemberProvider struct {
	svc *auth.Service
}

func NewMemberProvider(svc *auth.Service) *MemberProvider {
	return &MemberProvider{svc: svc}
}

func (p *MemberProvider) Authenticate(ctx context.Context, creds session.Credentials) (*session.Grant[*members.Member], error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "[MemberProvider.Authenticate]")
	}
	if creds.AccessKey == "" {
		return nil, errors.Wrap(session.ErrInvalidCredentials, "[MemberProvider.Authenticate] access key is required")
	}
	member, tokens, err := p.svc.VerifyAccessKey(creds.AccessKey)
	if err != nil {
		return nil, errors.Wrap(err, "[MemberProvider.Authenticate]")
	}
	return &session.Grant[*members.Member]{
		AccessToken: tokens.AccessToken,
		Profile:     member,
	}, nil
}
