package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/server"
	"github.com/jrsteele09/crec-session/session"
	"github.com/pkg/errors"
)

var _ session.Authenticator[*members.Member] = (*MemberProvider)(nil)

// MemberProvider verifies FabLab access keys against the backend.
type MemberProvider struct {
	verifyURL string
	opts      options
}

func NewMemberProvider(baseURL string, opts ...Option) *MemberProvider {
	return &MemberProvider{verifyURL: trimBaseURL(baseURL) + server.RouteFabLabVerify, opts: newOptions(opts)}
}

func (p *MemberProvider) Authenticate(ctx context.Context, creds session.Credentials) (*session.Grant[*members.Member], error) {
	if creds.AccessKey == "" {
		return nil, errors.Wrap(session.ErrInvalidCredentials, "[MemberProvider.Authenticate] access key is required")
	}

	body, err := json.Marshal(server.VerifyRequest{AccessKey: creds.AccessKey})
	if err != nil {
		return nil, errors.Wrap(err, "[MemberProvider.Authenticate]")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "[MemberProvider.Authenticate]")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.opts.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err, "[MemberProvider.Authenticate]")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case rejected(resp.StatusCode):
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Wrapf(session.ErrInvalidCredentials, "[MemberProvider.Authenticate] status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Wrap(errs.Wrapf(errs.ErrNetwork, "throttled"), "[MemberProvider.Authenticate]")
	default:
		return nil, errors.Errorf("[MemberProvider.Authenticate] unexpected status %d", resp.StatusCode)
	}

	var verified server.VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil {
		return nil, errors.Wrap(err, "[MemberProvider.Authenticate] decoding response")
	}
	if verified.AccessToken == "" || verified.Member == nil {
		return nil, errors.New("[MemberProvider.Authenticate] incomplete verify response")
	}
	p.opts.logger.Debug().Str("member", verified.Member.ID).Msg("access key verified")

	return &session.Grant[*members.Member]{
		AccessToken: verified.AccessToken,
		Profile:     verified.Member,
	}, nil
}
