package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/crec-session/identity"
	"github.com/jrsteele09/crec-session/internal/config"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/session"
	"github.com/jrsteele09/crec-session/users"
	"github.com/stretchr/testify/require"
)

func newProviders(t *testing.T, now time.Time) (*identity.AdminProvider, *identity.MemberProvider) {
	t.Helper()
	svc, err := identity.NewService(config.New(), func() time.Time { return now })
	require.NoError(t, err)
	return identity.NewAdminProvider(svc), identity.NewMemberProvider(svc)
}

func TestAdminProvider(t *testing.T) {
	admin, _ := newProviders(t, time.Now())
	ctx := context.Background()

	t.Run("seeded admin", func(t *testing.T) {
		grant, err := admin.Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: identity.AdminPassword})
		require.NoError(t, err)
		require.Equal(t, users.RoleAdmin, grant.Profile.Role)
		require.True(t, grant.Profile.HasPermission(users.PermUsersManage))
		require.NotEmpty(t, grant.AccessToken)
		require.NotEmpty(t, grant.RefreshToken)

		pair, err := admin.Refresh(ctx, grant.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEqual(t, grant.RefreshToken, pair.RefreshToken)
	})

	t.Run("seeded editor", func(t *testing.T) {
		grant, err := admin.Authenticate(ctx, session.Credentials{Email: identity.EditorEmail, Password: identity.EditorPassword})
		require.NoError(t, err)
		require.Equal(t, users.RoleEditor, grant.Profile.Role)
		require.True(t, grant.Profile.HasPermission(users.PermContentEdit))
		require.False(t, grant.Profile.HasPermission(users.PermUsersManage))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := admin.Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: "wrong"})
		require.ErrorIs(t, err, session.ErrInvalidCredentials)
	})

	t.Run("access key is not an admin credential", func(t *testing.T) {
		_, err := admin.Authenticate(ctx, session.Credentials{AccessKey: identity.ActiveMemberKey})
		require.ErrorIs(t, err, session.ErrInvalidCredentials)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := admin.Authenticate(cancelled, session.Credentials{Email: identity.AdminEmail, Password: identity.AdminPassword})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemberProvider(t *testing.T) {
	now := time.Now()
	_, member := newProviders(t, now)
	ctx := context.Background()

	grant, err := member.Authenticate(ctx, session.Credentials{AccessKey: identity.ActiveMemberKey})
	require.NoError(t, err)
	require.True(t, grant.Profile.CanReserve(now))
	require.Empty(t, grant.RefreshToken)

	grant, err = member.Authenticate(ctx, session.Credentials{AccessKey: identity.LapsedMemberKey})
	require.NoError(t, err)
	require.True(t, grant.Profile.HasPermission(members.PermReserve))
	require.False(t, grant.Profile.SubscriptionActive(now))
	require.False(t, grant.Profile.CanReserve(now))

	_, err = member.Authenticate(ctx, session.Credentials{AccessKey: "FAB-UNKNOWN-404"})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)

	_, err = member.Authenticate(ctx, session.Credentials{Email: identity.AdminEmail, Password: identity.AdminPassword})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
}
