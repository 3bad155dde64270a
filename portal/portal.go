// Package portal wires the two session instances of the CREC portal, admin and
// FabLab, over one storage backend and one activity bus.
package portal

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/crec-session/activity"
	"github.com/jrsteele09/crec-session/credstore"
	"github.com/jrsteele09/crec-session/httpclient"
	"github.com/jrsteele09/crec-session/identity"
	"github.com/jrsteele09/crec-session/identity/remote"
	"github.com/jrsteele09/crec-session/internal/config"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/session"
	"github.com/jrsteele09/crec-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	backend    credstore.Backend
	remoteURL  string
	httpClient *http.Client
	navigator  session.Navigator
	logger     zerolog.Logger
	nowFunc    func() time.Time
}

type Option func(*options)

// WithBackend uses backend instead of the one named by configuration. The
// portal takes ownership and closes it.
func WithBackend(backend credstore.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithRemote authenticates against the backend at baseURL instead of the
// in-process identity providers.
func WithRemote(baseURL string) Option {
	return func(o *options) {
		o.remoteURL = baseURL
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

func WithNavigator(n session.Navigator) Option {
	return func(o *options) {
		o.navigator = n
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

// Portal holds the admin and FabLab sessions.
type Portal struct {
	Admin    *AdminSession
	FabLab   *FabLabSession
	Activity *activity.Bus

	backend credstore.Backend
	logger  zerolog.Logger
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*Portal, error) {
	o := options{
		logger:  log.With().Str("component", "portal").Logger(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	backend := o.backend
	if backend == nil {
		var err error
		if backend, err = OpenBackend(ctx, cfg); err != nil {
			return nil, errors.Wrap(err, "[portal.New]")
		}
	}

	adminAuth, memberAuth, apiURL, err := providers(cfg, o)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	bus := activity.NewBus()
	sessionOpts := []session.Option{
		session.WithActivitySource(bus),
		session.WithLogger(o.logger),
		session.WithNowFunc(o.nowFunc),
	}
	if o.navigator != nil {
		sessionOpts = append(sessionOpts, session.WithNavigator(o.navigator))
	}

	admin, err := session.New(AdminPolicy(cfg), backend, adminAuth, sessionOpts...)
	if err != nil {
		_ = backend.Close()
		return nil, errors.Wrap(err, "[portal.New] admin session")
	}
	fablab, err := session.New(FabLabPolicy(cfg), backend, memberAuth, sessionOpts...)
	if err != nil {
		_ = backend.Close()
		return nil, errors.Wrap(err, "[portal.New] fablab session")
	}

	clientOpts := func(policy string) []httpclient.Option {
		return []httpclient.Option{
			httpclient.WithHTTPClient(o.httpClient),
			httpclient.WithBaseURL(apiURL),
			httpclient.WithLogger(o.logger.With().Str("policy", policy).Logger()),
		}
	}

	return &Portal{
		Admin:    &AdminSession{Manager: admin, client: httpclient.New(admin, clientOpts("admin")...)},
		FabLab:   &FabLabSession{Manager: fablab, client: httpclient.New(fablab, clientOpts("fablab")...)},
		Activity: bus,
		backend:  backend,
		logger:   o.logger,
	}, nil
}

// providers picks the identity providers and the API base URL.
func providers(cfg config.Config, o options) (session.Authenticator[*users.User], session.Authenticator[*members.Member], string, error) {
	if o.remoteURL != "" {
		remoteOpts := []remote.Option{remote.WithHTTPClient(o.httpClient), remote.WithLogger(o.logger)}
		return remote.NewAdminProvider(o.remoteURL, remoteOpts...), remote.NewMemberProvider(o.remoteURL, remoteOpts...), o.remoteURL, nil
	}

	svc, err := identity.NewService(cfg, o.nowFunc)
	if err != nil {
		return nil, nil, "", errors.Wrap(err, "[portal.New] identity service")
	}
	return identity.NewAdminProvider(svc), identity.NewMemberProvider(svc), cfg.GetBaseURL(), nil
}

// Resume re-attaches both sessions to whatever the backend holds. Stale
// sessions are cleared.
func (p *Portal) Resume() {
	admin := p.Admin.Resume()
	fablab := p.FabLab.Resume()
	p.logger.Debug().Bool("admin", admin).Bool("fablab", fablab).Msg("sessions resumed")
}

// Close stops both monitors and closes the backend. Persisted sessions survive.
func (p *Portal) Close() error {
	p.Admin.Close()
	p.FabLab.Close()
	return p.backend.Close()
}
