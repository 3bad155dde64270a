package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/crec-session/activity"
	"github.com/jrsteele09/crec-session/credstore"
	"github.com/jrsteele09/crec-session/credstore/memstore"
	"github.com/jrsteele09/crec-session/internal/utils"
	"github.com/jrsteele09/crec-session/session"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
	Member      bool     `json:"member"`
}

func (u *testUser) PrincipalID() string { return u.ID }

func (u *testUser) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

type fakeProvider struct {
	lock         sync.Mutex
	authCalls    int
	refreshCalls int
	refreshErr   error
	release      chan struct{}
	serial       int
}

func (f *fakeProvider) Authenticate(_ context.Context, creds session.Credentials) (*session.Grant[*testUser], error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.authCalls++

	if creds.Email != "admin@crec.edu" || creds.Password != "admin123" {
		return nil, session.ErrInvalidCredentials
	}
	return &session.Grant[*testUser]{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Profile:      &testUser{ID: "u-1", Email: creds.Email, Permissions: []string{"courses:read"}, Member: true},
	}, nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*session.TokenPair, error) {
	f.lock.Lock()
	f.refreshCalls++
	f.serial++
	serial := f.serial
	release := f.release
	err := f.refreshErr
	f.lock.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &session.TokenPair{
		AccessToken:  "access-r" + string(rune('0'+serial)),
		RefreshToken: refreshToken + "-next",
	}, nil
}

func (f *fakeProvider) calls() (int, int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.authCalls, f.refreshCalls
}

type clock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

type recordingNavigator struct {
	lock   sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) Routes() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.routes...)
}

type testFixture struct {
	manager   *session.Manager[*testUser]
	backend   *memstore.Backend
	provider  *fakeProvider
	clock     *clock
	navigator *recordingNavigator
	bus       *activity.Bus
}

func adminPolicy() session.Policy[*testUser] {
	return session.Policy[*testUser]{
		Name:              "admin",
		SessionTimeout:    30 * time.Minute,
		InactivityTimeout: 15 * time.Minute,
		CheckInterval:     time.Minute,
		LoginRoute:        "/admin/login",
		AllowRefresh:      true,
		RefreshAhead:      5 * time.Minute,
		Capability: func(u *testUser, _ time.Time) bool {
			return u.Member
		},
	}
}

func setupTestFixture(t *testing.T, policy session.Policy[*testUser]) *testFixture {
	t.Helper()
	f := &testFixture{
		backend:   memstore.New(),
		provider:  &fakeProvider{},
		clock:     &clock{now: time.UnixMilli(1_760_000_000_000)},
		navigator: &recordingNavigator{},
		bus:       activity.NewBus(),
	}
	m, err := session.New(policy, f.backend, session.Authenticator[*testUser](f.provider),
		session.WithNowFunc(f.clock.Now),
		session.WithNavigator(f.navigator),
		session.WithActivitySource(f.bus),
	)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	f.manager = m
	return f
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.manager.Login(context.Background(), session.Credentials{Email: "admin@crec.edu", Password: "admin123"})
	require.NoError(t, err)
}

func (f *testFixture) raw(t *testing.T, key string) string {
	t.Helper()
	value, _, err := f.backend.Get(context.Background(), key)
	require.NoError(t, err)
	return value
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	policy := adminPolicy()
	policy.SessionTimeout = 0
	_, err := session.New(policy, memstore.New(), session.Authenticator[*testUser](&fakeProvider{}))
	require.Error(t, err)

	policy = adminPolicy()
	policy.RefreshAhead = time.Hour
	_, err = session.New(policy, memstore.New(), session.Authenticator[*testUser](&fakeProvider{}))
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	t.Run("persists the session", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		now := f.clock.Now()

		profile, err := f.manager.Login(context.Background(), session.Credentials{Email: "admin@crec.edu", Password: "admin123"})
		require.NoError(t, err)
		require.Equal(t, "u-1", profile.ID)

		require.Equal(t, "access-1", f.raw(t, credstore.KeyToken))
		require.Equal(t, "refresh-1", f.raw(t, credstore.KeyRefreshToken))
		require.Equal(t, utils.UnixMillis(now.Add(30*time.Minute)), f.raw(t, credstore.KeyExpiresAt))
		require.Equal(t, utils.UnixMillis(now), f.raw(t, credstore.KeyLastActivity))

		require.True(t, f.manager.IsAuthenticated())
		require.True(t, f.manager.MonitorRunning())
		require.Equal(t, "access-1", f.manager.AccessToken())

		stored, ok := f.manager.CurrentUser()
		require.True(t, ok)
		require.Equal(t, profile, stored)
		require.Empty(t, f.navigator.Routes())
	})

	t.Run("wrong password writes nothing", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())

		_, err := f.manager.Login(context.Background(), session.Credentials{Email: "admin@crec.edu", Password: "nope"})
		require.ErrorIs(t, err, session.ErrInvalidCredentials)
		require.Zero(t, f.backend.Len())
		require.False(t, f.manager.IsAuthenticated())
		require.False(t, f.manager.MonitorRunning())
	})

	t.Run("malformed credentials never reach the provider", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())

		for _, creds := range []session.Credentials{
			{},
			{Email: "not-an-email", Password: "x"},
			{Email: "admin@crec.edu"},
			{AccessKey: "ab"},
		} {
			_, err := f.manager.Login(context.Background(), creds)
			require.ErrorIs(t, err, session.ErrInvalidCredentials)
		}
		authCalls, _ := f.provider.calls()
		require.Zero(t, authCalls)
		require.Zero(t, f.backend.Len())
	})

	t.Run("refresh token is not kept when the policy forbids refresh", func(t *testing.T) {
		policy := adminPolicy()
		policy.AllowRefresh = false
		policy.RefreshAhead = 0
		f := setupTestFixture(t, policy)
		f.login(t)

		require.Equal(t, "", f.raw(t, credstore.KeyRefreshToken))
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("login replaces an existing session", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.clock.Advance(10 * time.Minute)
		f.login(t)

		require.Equal(t, utils.UnixMillis(f.clock.Now().Add(30*time.Minute)), f.raw(t, credstore.KeyExpiresAt))
		require.True(t, f.manager.MonitorRunning())
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t, adminPolicy())
	f.login(t)

	f.manager.Logout()
	require.Zero(t, f.backend.Len())
	require.False(t, f.manager.IsAuthenticated())
	require.False(t, f.manager.MonitorRunning())
	_, ok := f.manager.CurrentUser()
	require.False(t, ok)

	f.manager.Logout()
	require.Zero(t, f.backend.Len())
	require.Equal(t, []string{"/admin/login", "/admin/login"}, f.navigator.Routes())
}

func TestExpiryTracks(t *testing.T) {
	t.Run("absolute expiry", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)

		// Stay active the whole time.
		for i := 0; i < 3; i++ {
			f.clock.Advance(10 * time.Minute)
			f.manager.RecordActivity()
		}
		require.False(t, f.manager.Active())
		require.False(t, f.manager.IsAuthenticated())
		require.Zero(t, f.backend.Len())
		require.Equal(t, []string{"/admin/login"}, f.navigator.Routes())
	})

	t.Run("inactivity", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)

		f.clock.Advance(14 * time.Minute)
		require.True(t, f.manager.IsAuthenticated())

		f.clock.Advance(time.Minute)
		require.False(t, f.manager.IsAuthenticated())
		require.Zero(t, f.backend.Len())
	})

	t.Run("activity keeps the session alive", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)

		f.clock.Advance(14 * time.Minute)
		f.bus.Publish(activity.Signal{Kind: activity.KeyDown})
		f.clock.Advance(14 * time.Minute)
		require.True(t, f.manager.IsAuthenticated())
		require.Equal(t, utils.UnixMillis(f.clock.Now().Add(-14*time.Minute)), f.raw(t, credstore.KeyLastActivity))
	})

	t.Run("activity does not revive an inactive session", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		before := f.raw(t, credstore.KeyLastActivity)

		f.clock.Advance(16 * time.Minute)
		f.manager.RecordActivity()
		require.Equal(t, before, f.raw(t, credstore.KeyLastActivity))
		require.False(t, f.manager.IsAuthenticated())
	})

	t.Run("stale session found at startup", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.manager.Close()

		f.clock.Advance(time.Hour)
		require.False(t, f.manager.Resume())
		require.Zero(t, f.backend.Len())
		require.False(t, f.manager.MonitorRunning())
	})
}

func TestResume(t *testing.T) {
	f := setupTestFixture(t, adminPolicy())
	f.login(t)
	f.manager.Close()
	require.False(t, f.manager.MonitorRunning())
	require.True(t, f.manager.IsAuthenticated())

	require.True(t, f.manager.Resume())
	require.True(t, f.manager.MonitorRunning())
	require.True(t, f.manager.Resume())
}

func TestCorruptState(t *testing.T) {
	t.Run("unreadable profile", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.backend.Raw(credstore.KeyUser, "{not json")

		_, ok := f.manager.CurrentUser()
		require.False(t, ok)
		require.True(t, f.manager.IsAuthenticated())
		require.False(t, f.manager.HasPermission("courses:read"))
		require.False(t, f.manager.HasCapability())
	})

	t.Run("unreadable expiry", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.backend.Raw(credstore.KeyExpiresAt, "soon")

		require.False(t, f.manager.IsAuthenticated())
		require.Zero(t, f.backend.Len())
	})
}

func TestPermissionsAndCapability(t *testing.T) {
	f := setupTestFixture(t, adminPolicy())
	require.False(t, f.manager.HasPermission("courses:read"))
	require.False(t, f.manager.HasCapability())

	f.login(t)
	require.True(t, f.manager.HasPermission("courses:read"))
	require.False(t, f.manager.HasPermission("users:manage"))
	require.True(t, f.manager.HasCapability())

	f.clock.Advance(31 * time.Minute)
	require.False(t, f.manager.HasPermission("courses:read"))
	require.False(t, f.manager.HasCapability())
}

func TestExpireCredential(t *testing.T) {
	t.Run("concurrent rejections log out once", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		cred := f.manager.Credential()

		var wg sync.WaitGroup
		var logouts atomic.Int32
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if f.manager.ExpireCredential(cred) {
					logouts.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), logouts.Load())
		require.Equal(t, []string{"/admin/login"}, f.navigator.Routes())
		require.Zero(t, f.backend.Len())
	})

	t.Run("an old session's rejection leaves a new session alone", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		old := f.manager.Credential()
		f.login(t)

		require.False(t, f.manager.ExpireCredential(old))
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("anonymous requests do not log out", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		require.False(t, f.manager.ExpireCredential(f.manager.Credential()))
		require.Empty(t, f.navigator.Routes())
	})

	t.Run("session cleared elsewhere", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		cred := f.manager.Credential()
		require.NoError(t, f.manager.Store().Clear(context.Background()))

		require.True(t, f.manager.ExpireCredential(cred))
		require.False(t, f.manager.ExpireCredential(cred))
		require.Equal(t, []string{"/admin/login"}, f.navigator.Routes())
	})
}

func TestRefresh(t *testing.T) {
	t.Run("replaces tokens and expiry", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.clock.Advance(10 * time.Minute)
		f.manager.RecordActivity()

		require.True(t, f.manager.Refresh(context.Background()))
		require.Equal(t, "access-r1", f.raw(t, credstore.KeyToken))
		require.Equal(t, "refresh-1-next", f.raw(t, credstore.KeyRefreshToken))
		require.Equal(t, utils.UnixMillis(f.clock.Now().Add(30*time.Minute)), f.raw(t, credstore.KeyExpiresAt))
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("not allowed by policy", func(t *testing.T) {
		policy := adminPolicy()
		policy.AllowRefresh = false
		policy.RefreshAhead = 0
		f := setupTestFixture(t, policy)
		f.login(t)

		require.False(t, f.manager.Refresh(context.Background()))
		require.False(t, f.manager.RefreshDue())
		_, refreshCalls := f.provider.calls()
		require.Zero(t, refreshCalls)
	})

	t.Run("failure keeps the session", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.provider.refreshErr = session.ErrNetwork

		require.False(t, f.manager.Refresh(context.Background()))
		require.Equal(t, "access-1", f.raw(t, credstore.KeyToken))
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("due inside the refresh window", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		require.False(t, f.manager.RefreshDue())

		for i := 0; i < 2; i++ {
			f.clock.Advance(13 * time.Minute)
			f.manager.RecordActivity()
		}
		require.True(t, f.manager.RefreshDue())
	})

	t.Run("concurrent refreshes share one exchange", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.provider.release = make(chan struct{})

		var ready, done sync.WaitGroup
		var succeeded atomic.Int32
		for i := 0; i < 5; i++ {
			ready.Add(1)
			done.Add(1)
			go func() {
				defer done.Done()
				ready.Done()
				if f.manager.Refresh(context.Background()) {
					succeeded.Add(1)
				}
			}()
		}
		ready.Wait()
		time.Sleep(100 * time.Millisecond)
		close(f.provider.release)
		done.Wait()

		_, refreshCalls := f.provider.calls()
		require.Equal(t, 1, refreshCalls)
		require.Equal(t, int32(5), succeeded.Load())
	})

	t.Run("logout during refresh discards the result", func(t *testing.T) {
		f := setupTestFixture(t, adminPolicy())
		f.login(t)
		f.provider.release = make(chan struct{})

		result := make(chan bool)
		go func() {
			result <- f.manager.Refresh(context.Background())
		}()
		require.Eventually(t, func() bool {
			_, calls := f.provider.calls()
			return calls == 1
		}, time.Second, 5*time.Millisecond)

		f.manager.Logout()
		close(f.provider.release)

		require.False(t, <-result)
		require.Zero(t, f.backend.Len())
	})
}

func TestMonitorLogsOutOnTimer(t *testing.T) {
	policy := adminPolicy()
	policy.CheckInterval = 10 * time.Millisecond
	f := setupTestFixture(t, policy)
	f.login(t)

	f.clock.Advance(16 * time.Minute)
	require.Eventually(t, func() bool {
		return len(f.navigator.Routes()) == 1
	}, time.Second, 5*time.Millisecond)

	require.Zero(t, f.backend.Len())
	require.Eventually(t, func() bool {
		return !f.manager.MonitorRunning()
	}, time.Second, 5*time.Millisecond)
	require.Zero(t, f.bus.Subscribers())

	time.Sleep(50 * time.Millisecond)
	require.Len(t, f.navigator.Routes(), 1)
}

func TestPrefixesKeepSessionsApart(t *testing.T) {
	backend := memstore.New()
	provider := &fakeProvider{}

	admin, err := session.New(adminPolicy(), backend, session.Authenticator[*testUser](provider))
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	fablabPolicy := adminPolicy()
	fablabPolicy.Name = "fablab"
	fablabPolicy.KeyPrefix = "fablab_"
	fablabPolicy.LoginRoute = "/fablab/verify"
	fablab, err := session.New(fablabPolicy, backend, session.Authenticator[*testUser](provider),
		session.WithNavigator(session.NavigatorFunc(func(string) {})))
	require.NoError(t, err)
	t.Cleanup(fablab.Close)

	_, err = fablab.Login(context.Background(), session.Credentials{Email: "admin@crec.edu", Password: "admin123"})
	require.NoError(t, err)
	require.True(t, fablab.IsAuthenticated())
	require.False(t, admin.IsAuthenticated())

	value, ok, err := backend.Get(context.Background(), "fablab_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "access-1", value)

	fablab.Logout()
	require.Zero(t, backend.Len())
}

func TestSnapshot(t *testing.T) {
	f := setupTestFixture(t, adminPolicy())
	require.False(t, f.manager.Snapshot().Authenticated)

	f.login(t)
	info := f.manager.Snapshot()
	require.True(t, info.Authenticated)
	require.True(t, info.HasRefresh)
	require.NotNil(t, info.User)
	require.Equal(t, "u-1", info.User.ID)
	require.True(t, info.ExpiresAt.Equal(f.clock.Now().Add(30*time.Minute)))
}

func TestLoginPropagatesTransportErrors(t *testing.T) {
	f := setupTestFixture(t, adminPolicy())
	m, err := session.New(adminPolicy(), f.backend, session.Authenticator[*testUser](failingProvider{err: session.ErrTimeout}))
	require.NoError(t, err)

	_, err = m.Login(context.Background(), session.Credentials{Email: "admin@crec.edu", Password: "admin123"})
	require.True(t, errors.Is(err, session.ErrTimeout))
	require.Zero(t, f.backend.Len())
}

type failingProvider struct {
	err error
}

func (p failingProvider) Authenticate(context.Context, session.Credentials) (*session.Grant[*testUser], error) {
	return nil, p.err
}

// unwritableBackend fails every write while failing is set.
type unwritableBackend struct {
	*memstore.Backend
	failing atomic.Bool
}

func (b *unwritableBackend) SetMany(ctx context.Context, entries map[string]string) error {
	if b.failing.Load() {
		return errors.New("disk full")
	}
	return b.Backend.SetMany(ctx, entries)
}

func TestFailedLoginKeepsCurrentSession(t *testing.T) {
	backend := &unwritableBackend{Backend: memstore.New()}
	navigator := &recordingNavigator{}
	m, err := session.New(adminPolicy(), backend, session.Authenticator[*testUser](&fakeProvider{}),
		session.WithNavigator(navigator),
		session.WithActivitySource(activity.NewBus()),
	)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	creds := session.Credentials{Email: "admin@crec.edu", Password: "admin123"}
	_, err = m.Login(context.Background(), creds)
	require.NoError(t, err)
	cred := m.Credential()

	backend.failing.Store(true)
	_, err = m.Login(context.Background(), creds)
	require.Error(t, err)
	require.True(t, errors.Is(err, session.ErrStorageUnavailable))

	require.True(t, m.Active())
	require.True(t, m.MonitorRunning())
	require.Equal(t, cred, m.Credential())

	backend.failing.Store(false)
	require.True(t, m.ExpireCredential(cred))
	require.Equal(t, []string{"/admin/login"}, navigator.Routes())
	require.False(t, m.IsAuthenticated())
}
