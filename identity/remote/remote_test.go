package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/crec-session/identity"
	"github.com/jrsteele09/crec-session/identity/remote"
	"github.com/jrsteele09/crec-session/internal/config"
	"github.com/jrsteele09/crec-session/server"
	"github.com/jrsteele09/crec-session/session"
	"github.com/jrsteele09/crec-session/users"
	"github.com/stretchr/testify/require"
)

func setupBackend(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.New()
	svc, err := identity.NewService(cfg, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(cfg, svc))
	t.Cleanup(srv.Close)
	return srv
}

func TestAdminProvider(t *testing.T) {
	backend := setupBackend(t)
	admin := remote.NewAdminProvider(backend.URL)
	ctx := context.Background()

	t.Run("password grant and userinfo", func(t *testing.T) {
		grant, err := admin.Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: identity.AdminPassword})
		require.NoError(t, err)
		require.NotEmpty(t, grant.AccessToken)
		require.NotEmpty(t, grant.RefreshToken)
		require.Equal(t, "user-admin-001", grant.Profile.ID)
		require.Equal(t, identity.AdminEmail, grant.Profile.Email)
		require.Equal(t, users.RoleAdmin, grant.Profile.Role)
		require.True(t, grant.Profile.HasPermission(users.PermUsersManage))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := admin.Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: "nope"})
		require.ErrorIs(t, err, session.ErrInvalidCredentials)
	})

	t.Run("refresh rotates", func(t *testing.T) {
		grant, err := admin.Authenticate(ctx, session.Credentials{Email: identity.EditorEmail, Password: identity.EditorPassword})
		require.NoError(t, err)

		pair, err := admin.Refresh(ctx, grant.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEqual(t, grant.RefreshToken, pair.RefreshToken)

		_, err = admin.Refresh(ctx, grant.RefreshToken)
		require.ErrorIs(t, err, session.ErrAuthExpired)
	})
}

func TestMemberProvider(t *testing.T) {
	backend := setupBackend(t)
	member := remote.NewMemberProvider(backend.URL + "/")
	ctx := context.Background()

	grant, err := member.Authenticate(ctx, session.Credentials{AccessKey: identity.ActiveMemberKey})
	require.NoError(t, err)
	require.NotEmpty(t, grant.AccessToken)
	require.Empty(t, grant.RefreshToken)
	require.Equal(t, "member-active-001", grant.Profile.ID)
	require.True(t, grant.Profile.CanReserve(time.Now()))

	grant, err = member.Authenticate(ctx, session.Credentials{AccessKey: identity.LapsedMemberKey})
	require.NoError(t, err)
	require.False(t, grant.Profile.CanReserve(time.Now()))

	_, err = member.Authenticate(ctx, session.Credentials{AccessKey: "FAB-NOBODY-000"})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)

	_, err = member.Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: identity.AdminPassword})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
}

func TestTransportFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("backend down", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := remote.NewAdminProvider(url).Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: identity.AdminPassword})
		require.ErrorIs(t, err, session.ErrNetwork)
		require.NotErrorIs(t, err, session.ErrInvalidCredentials)

		_, err = remote.NewMemberProvider(url).Authenticate(ctx, session.Credentials{AccessKey: identity.ActiveMemberKey})
		require.ErrorIs(t, err, session.ErrNetwork)
	})

	t.Run("slow backend", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		client := &http.Client{Timeout: 50 * time.Millisecond}
		_, err := remote.NewMemberProvider(srv.URL, remote.WithHTTPClient(client)).Authenticate(ctx, session.Credentials{AccessKey: identity.ActiveMemberKey})
		require.ErrorIs(t, err, session.ErrTimeout)

		_, err = remote.NewAdminProvider(srv.URL, remote.WithHTTPClient(client)).Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: identity.AdminPassword})
		require.ErrorIs(t, err, session.ErrTimeout)
	})
}
