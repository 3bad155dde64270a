package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jrsteele09/crec-session/activity"
	"github.com/jrsteele09/crec-session/credstore"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/internal/validation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var errStaleRefresh = errors.New("session changed during refresh")

// Manager owns the session of one actor kind.
type Manager[P Principal] struct {
	policy    Policy[P]
	store     *credstore.Store
	auth      Authenticator[P]
	refresher Refresher
	navigator Navigator
	source    activity.Source
	validator *validation.Validator
	logger    zerolog.Logger
	nowFunc   func() time.Time

	lock sync.Mutex
	// generation identifies the current session. It changes on every login and
	// every logout, so work started under one session never ends another.
	generation uint64
	monitor    *activity.Monitor

	refreshGroup singleflight.Group
}

// New creates a Manager. When auth also implements Refresher it is used for
// token renewal, subject to Policy.AllowRefresh.
func New[P Principal](policy Policy[P], backend credstore.Backend, auth Authenticator[P], opts ...Option) (*Manager[P], error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, errors.New("[session.New] a storage backend is required")
	}
	if auth == nil {
		return nil, errors.New("[session.New] an authenticator is required")
	}

	o := options{nowFunc: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.With().Str("component", "session").Str("policy", policy.Name).Logger()
	if o.logger != nil {
		logger = o.logger.With().Str("policy", policy.Name).Logger()
	}
	if o.navigator == nil {
		o.navigator = logNavigator{logger: logger}
	}

	m := &Manager[P]{
		policy:    policy,
		store:     credstore.New(backend, policy.KeyPrefix),
		auth:      auth,
		navigator: o.navigator,
		source:    o.source,
		validator: validation.New(),
		logger:    logger,
		nowFunc:   o.nowFunc,
	}
	if r, ok := auth.(Refresher); ok {
		m.refresher = r
	}
	return m, nil
}

// Policy returns the policy the manager was built with.
func (m *Manager[P]) Policy() Policy[P] {
	return m.policy
}

// Store exposes the credential store, for diagnostics and tests.
func (m *Manager[P]) Store() *credstore.Store {
	return m.store
}

// Login validates creds with the identity provider and persists a new session,
// replacing any existing one. Nothing is written when authentication fails.
func (m *Manager[P]) Login(ctx context.Context, creds Credentials) (P, error) {
	var zero P
	if err := m.validator.Struct(creds); err != nil {
		m.logger.Info().Err(err).Msg("login rejected before contacting the identity provider")
		return zero, errors.Wrap(errs.Wrapf(ErrInvalidCredentials, "%v", err), "[Manager.Login]")
	}

	grant, err := m.auth.Authenticate(ctx, creds)
	if err != nil {
		m.logger.Info().Err(err).Msg("login failed")
		return zero, errors.Wrap(err, "[Manager.Login]")
	}
	if grant == nil || grant.AccessToken == "" {
		return zero, errors.New("[Manager.Login] identity provider returned no access token")
	}

	user, err := json.Marshal(grant.Profile)
	if err != nil {
		return zero, errors.Wrap(err, "[Manager.Login] encoding profile")
	}

	refreshToken := grant.RefreshToken
	if !m.policy.AllowRefresh {
		refreshToken = ""
	}

	now := m.nowFunc()
	rec := credstore.Record{
		AccessToken:    grant.AccessToken,
		RefreshToken:   refreshToken,
		User:           user,
		ExpiresAt:      now.Add(m.policy.SessionTimeout),
		LastActivityAt: now,
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.store.Save(ctx, rec); err != nil {
		return zero, errors.Wrap(err, "[Manager.Login]")
	}
	m.stopMonitorLocked()
	m.generation++
	m.startMonitorLocked()

	m.logger.Info().Str("principal", grant.Profile.PrincipalID()).Time("expiresAt", rec.ExpiresAt).Msg("logged in")
	return grant.Profile, nil
}

// valid reports whether rec is a live session at now: a token, an expiry in the
// future and activity within the inactivity timeout.
func (m *Manager[P]) valid(rec credstore.Record, now time.Time) bool {
	if rec.AccessToken == "" || rec.ExpiresAt.IsZero() || rec.LastActivityAt.IsZero() {
		return false
	}
	if !now.Before(rec.ExpiresAt) {
		return false
	}
	return now.Sub(rec.LastActivityAt) < m.policy.InactivityTimeout
}

func (m *Manager[P]) loadLocked() (credstore.Record, error) {
	rec, err := m.store.Load(context.Background())
	if err != nil {
		return credstore.Record{}, err
	}
	if len(rec.Corrupt) > 0 {
		m.logger.Warn().Strs("keys", rec.Corrupt).Msg("corrupt session timestamps, treating session as expired")
	}
	return rec, nil
}

// Active reports whether a live session exists without side effects.
func (m *Manager[P]) Active() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	rec, err := m.loadLocked()
	if err != nil {
		m.logger.Error().Err(err).Msg("reading session")
		return false
	}
	return m.valid(rec, m.nowFunc())
}

// IsAuthenticated reports whether a live session exists. A stored session that
// has expired or gone inactive is logged out as a side effect, which includes
// the redirect to the login route. Storage failures read as unauthenticated.
func (m *Manager[P]) IsAuthenticated() bool {
	ok, loggedOut := m.authenticate()
	if loggedOut {
		m.navigator.Navigate(m.policy.LoginRoute)
	}
	return ok
}

func (m *Manager[P]) authenticate() (ok bool, loggedOut bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	rec, err := m.loadLocked()
	if err != nil {
		m.logger.Error().Err(err).Msg("reading session")
		return false, false
	}
	if m.valid(rec, m.nowFunc()) {
		return true, false
	}
	if rec.Empty() {
		return false, false
	}
	m.logoutLocked("expired")
	return false, true
}

// CurrentUser returns the stored profile. A missing or unparseable profile
// reports false.
func (m *Manager[P]) CurrentUser() (P, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.currentUserLocked()
}

func (m *Manager[P]) currentUserLocked() (P, bool) {
	var profile P
	rec, err := m.loadLocked()
	if err != nil {
		m.logger.Error().Err(err).Msg("reading session")
		return profile, false
	}
	if len(rec.User) == 0 {
		return profile, false
	}
	if err := json.Unmarshal(rec.User, &profile); err != nil {
		m.logger.Warn().Err(errs.Wrapf(ErrCorruptState, "%v", err)).Msg("stored profile is unreadable")
		var zero P
		return zero, false
	}
	return profile, true
}

// HasPermission reports whether the session is live and its profile grants
// permission.
func (m *Manager[P]) HasPermission(permission string) bool {
	if !m.IsAuthenticated() {
		return false
	}
	profile, ok := m.CurrentUser()
	return ok && profile.HasPermission(permission)
}

// HasCapability reports whether the session is live and the policy's
// capability check passes for its profile.
func (m *Manager[P]) HasCapability() bool {
	if !m.IsAuthenticated() {
		return false
	}
	profile, ok := m.CurrentUser()
	if !ok {
		return false
	}
	if m.policy.Capability == nil {
		return true
	}
	return m.policy.Capability(profile, m.nowFunc())
}

// RecordActivity marks a user interaction. It never revives a session that is
// already past one of its timeouts.
func (m *Manager[P]) RecordActivity() {
	m.lock.Lock()
	defer m.lock.Unlock()

	rec, err := m.loadLocked()
	if err != nil {
		m.logger.Error().Err(err).Msg("reading session")
		return
	}
	now := m.nowFunc()
	if !m.valid(rec, now) {
		return
	}
	if err := m.store.Touch(context.Background(), now); err != nil {
		m.logger.Error().Err(err).Msg("recording activity")
	}
}

// AccessToken returns the stored access token, or "" when there is none.
func (m *Manager[P]) AccessToken() string {
	return m.Credential().Token
}

// Credential is the access token attached to an outgoing request, tagged with
// the session it belongs to.
type Credential struct {
	Token      string
	Generation uint64
}

// Credential returns the current access token and session generation.
func (m *Manager[P]) Credential() Credential {
	m.lock.Lock()
	defer m.lock.Unlock()

	token, err := m.store.Token(context.Background())
	if err != nil {
		m.logger.Error().Err(err).Msg("reading access token")
		return Credential{Generation: m.generation}
	}
	return Credential{Token: token, Generation: m.generation}
}

// ExpireCredential handles an authorization failure for a request sent with c.
// The session is logged out only if c still belongs to it, so concurrent
// failures of one session log out once. It reports whether this call logged out.
func (m *Manager[P]) ExpireCredential(c Credential) bool {
	if c.Token == "" {
		return false
	}

	m.lock.Lock()
	if m.generation != c.Generation {
		m.lock.Unlock()
		return false
	}
	current, err := m.store.Token(context.Background())
	if err != nil {
		m.logger.Error().Err(err).Msg("reading access token")
	}
	// A refresh may have replaced the token the request carried.
	if current != "" && current != c.Token {
		m.lock.Unlock()
		return false
	}
	m.logoutLocked("rejected by server")
	m.lock.Unlock()

	m.navigator.Navigate(m.policy.LoginRoute)
	return true
}

// RefreshDue reports whether the live session's expiry is within the policy's
// refresh window.
func (m *Manager[P]) RefreshDue() bool {
	if !m.policy.AllowRefresh || m.refresher == nil || m.policy.RefreshAhead <= 0 {
		return false
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	rec, err := m.loadLocked()
	if err != nil {
		return false
	}
	now := m.nowFunc()
	if rec.RefreshToken == "" || !m.valid(rec, now) {
		return false
	}
	return rec.ExpiresAt.Sub(now) <= m.policy.RefreshAhead
}

// Refresh exchanges the refresh token for a new access token and moves the
// expiry to now plus the session timeout. Concurrent calls share one exchange.
// It reports false when refresh is not allowed, there is no live session, or
// the exchange fails; the session is left as it was in each case.
func (m *Manager[P]) Refresh(ctx context.Context) bool {
	if !m.policy.AllowRefresh || m.refresher == nil {
		m.logger.Debug().Err(ErrRefreshUnsupported).Msg("refresh skipped")
		return false
	}

	m.lock.Lock()
	rec, err := m.loadLocked()
	generation := m.generation
	m.lock.Unlock()
	if err != nil {
		m.logger.Error().Err(err).Msg("reading session")
		return false
	}
	if rec.RefreshToken == "" || !m.valid(rec, m.nowFunc()) {
		return false
	}

	_, err, shared := m.refreshGroup.Do(rec.RefreshToken, func() (interface{}, error) {
		return nil, m.exchange(ctx, rec.RefreshToken, generation)
	})
	if err != nil {
		if errors.Is(err, errStaleRefresh) {
			m.logger.Debug().Msg("session changed during refresh, result discarded")
		} else {
			m.logger.Warn().Err(err).Msg("token refresh failed")
		}
		return false
	}
	m.logger.Debug().Bool("shared", shared).Msg("token refreshed")
	return true
}

func (m *Manager[P]) exchange(ctx context.Context, refreshToken string, generation uint64) error {
	pair, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return errors.Wrap(err, "[Manager.Refresh]")
	}
	if pair == nil || pair.AccessToken == "" {
		return errors.New("[Manager.Refresh] identity provider returned no access token")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	// Drop the result if the session was replaced or ended meanwhile.
	if m.generation != generation {
		return errStaleRefresh
	}
	current, err := m.store.RefreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "[Manager.Refresh]")
	}
	if current != refreshToken {
		return errStaleRefresh
	}

	next := pair.RefreshToken
	if next == "" {
		next = refreshToken
	}
	expiresAt := m.nowFunc().Add(m.policy.SessionTimeout)
	if err := m.store.ReplaceTokens(ctx, pair.AccessToken, next, expiresAt); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errStaleRefresh
		}
		return errors.Wrap(err, "[Manager.Refresh]")
	}
	return nil
}

// Logout clears the session and redirects to the login route. Logging out
// without a session only redirects.
func (m *Manager[P]) Logout() {
	m.lock.Lock()
	m.logoutLocked("logout")
	m.lock.Unlock()

	m.navigator.Navigate(m.policy.LoginRoute)
}

func (m *Manager[P]) logoutLocked(reason string) {
	m.stopMonitorLocked()
	m.generation++
	if err := m.store.Clear(context.Background()); err != nil {
		m.logger.Error().Err(err).Msg("clearing session")
	}
	m.logger.Info().Str("reason", reason).Msg("logged out")
}

// endGeneration logs out on behalf of the activity monitor of one session.
func (m *Manager[P]) endGeneration(generation uint64, reason string) {
	m.lock.Lock()
	if m.generation != generation {
		m.lock.Unlock()
		return
	}
	m.logoutLocked(reason)
	m.lock.Unlock()

	m.navigator.Navigate(m.policy.LoginRoute)
}

// Resume picks up a session persisted by an earlier process: a live session
// gets its activity monitor, a stale one is logged out.
func (m *Manager[P]) Resume() bool {
	if !m.IsAuthenticated() {
		return false
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.monitor == nil {
		m.startMonitorLocked()
	}
	return true
}

// MonitorRunning reports whether the activity monitor is running.
func (m *Manager[P]) MonitorRunning() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.monitor != nil && m.monitor.Running()
}

// Close stops the activity monitor and keeps the stored session.
func (m *Manager[P]) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.stopMonitorLocked()
}

func (m *Manager[P]) startMonitorLocked() {
	target := &monitorTarget[P]{manager: m, generation: m.generation}
	m.monitor = activity.NewMonitor(target, m.source, m.policy.CheckInterval, activity.WithLogger(m.logger))
	m.monitor.Start()
}

func (m *Manager[P]) stopMonitorLocked() {
	if m.monitor == nil {
		return
	}
	m.monitor.Stop()
	m.monitor = nil
}

// Info is a point-in-time view of the session.
type Info[P Principal] struct {
	Authenticated  bool      `json:"authenticated"`
	ExpiresAt      time.Time `json:"expiresAt,omitempty"`
	LastActivityAt time.Time `json:"lastActivityAt,omitempty"`
	HasRefresh     bool      `json:"hasRefreshToken"`
	User           P         `json:"user,omitempty"`
}

// Snapshot returns the session state without side effects.
func (m *Manager[P]) Snapshot() Info[P] {
	m.lock.Lock()
	defer m.lock.Unlock()

	rec, err := m.loadLocked()
	if err != nil {
		m.logger.Error().Err(err).Msg("reading session")
		return Info[P]{}
	}
	info := Info[P]{
		Authenticated:  m.valid(rec, m.nowFunc()),
		ExpiresAt:      rec.ExpiresAt,
		LastActivityAt: rec.LastActivityAt,
		HasRefresh:     rec.RefreshToken != "",
	}
	if profile, ok := m.currentUserLocked(); ok {
		info.User = profile
	}
	return info
}
