package portal

import (
	"context"

	"github.com/jrsteele09/crec-session/httpclient"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/session"
	"github.com/jrsteele09/crec-session/users"
)

// AdminSession is the back-office session and the API client bound to it.
type AdminSession struct {
	*session.Manager[*users.User]
	client *httpclient.Client
}

func (a *AdminSession) Login(ctx context.Context, email, password string) (*users.User, error) {
	return a.Manager.Login(ctx, session.Credentials{Email: email, Password: password})
}

// Client returns the HTTP client that carries this session's access token.
func (a *AdminSession) Client() *httpclient.Client {
	return a.client
}

// FabLabSession is the member session of the FabLab reservation flow.
type FabLabSession struct {
	*session.Manager[*members.Member]
	client *httpclient.Client
}

// VerifySubscription checks a member access key and starts a member session.
// A lapsed subscription still verifies; CanMakeReservation reports it.
func (f *FabLabSession) VerifySubscription(ctx context.Context, accessKey string) (*members.Member, error) {
	return f.Manager.Login(ctx, session.Credentials{AccessKey: accessKey})
}

func (f *FabLabSession) IsVerified() bool {
	return f.IsAuthenticated()
}

func (f *FabLabSession) CanMakeReservation() bool {
	return f.HasCapability()
}

func (f *FabLabSession) Client() *httpclient.Client {
	return f.client
}
