package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/crec-session/auth"
	"github.com/jrsteele09/crec-session/internal/config"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/members"
	fakememberrepo "github.com/jrsteele09/crec-session/members/repofake"
	"github.com/jrsteele09/crec-session/token"
	refreshrepofake "github.com/jrsteele09/crec-session/token/refresh/repofake"
	"github.com/jrsteele09/crec-session/users"
	fakeuserrepo "github.com/jrsteele09/crec-session/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	secretStr        = "1234"
	issuer           = "http://portal.test"
	testUserEmail    = "jane.doe@crec.edu"
	testUserPassword = "password123"
	testAccessKey    = "FAB-TEST-001"
)

type testClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *testClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	clock    *testClock
	issuer   *token.Issuer
	service  *auth.Service
	user     *users.User
	member   *members.Member
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repos := auth.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		Members:       fakememberrepo.NewFakeMemberRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}

	hash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)
	user := &users.User{
		Email:        testUserEmail,
		DisplayName:  "Jane Doe",
		Role:         users.RoleEditor,
		Permissions:  users.PermissionsForRole(users.RoleEditor),
		PasswordHash: hash,
	}
	require.NoError(t, repos.Users.Upsert(user))

	member := &members.Member{
		Name:                  "Sam Solder",
		Tier:                  members.TierBasic,
		SubscriptionExpiresAt: clock.Now().Add(24 * time.Hour),
		Permissions:           []string{members.PermReserve},
		AccessKeyHash:         members.HashAccessKey(testAccessKey),
	}
	require.NoError(t, repos.Members.Upsert(member))

	iss := token.NewIssuer(token.NewHMACSigner(secretStr), issuer, token.WithNowFunc(clock.Now))
	return &testFixture{
		userRepo: repos.Users.(*fakeuserrepo.FakeUserRepo),
		clock:    clock,
		issuer:   iss,
		service:  auth.NewService(repos, iss, config.OAuth{}, auth.WithNowTime(clock.Now)),
		user:     user,
		member:   member,
	}
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		f := setupTestFixture(t)

		user, tokens, err := f.service.Login(testUserEmail, testUserPassword)
		require.NoError(t, err)
		require.Equal(t, f.user.ID, user.ID)
		require.Empty(t, user.PasswordHash)
		require.Equal(t, f.clock.Now(), user.LastLogin)
		require.NotEmpty(t, tokens.RefreshToken)
		require.Equal(t, f.clock.Now().Add(30*time.Minute), tokens.ExpiresAt)
		require.Equal(t, 1800, tokens.ExpiresIn(f.clock.Now()))

		claims, err := f.service.Authenticate(tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, token.KindUser, claims.Kind)
		require.Equal(t, string(users.RoleEditor), claims.Role)
		require.Contains(t, claims.Permissions, users.PermCoursesRead)
	})

	t.Run("rejections are invalid credentials", func(t *testing.T) {
		f := setupTestFixture(t)

		_, _, err := f.service.Login(testUserEmail, "wrong")
		require.ErrorIs(t, err, errs.ErrInvalidCredentials)
		require.ErrorContains(t, err, auth.UserPasswordsDontMatchErr.Error())

		_, _, err = f.service.Login("nobody@crec.edu", testUserPassword)
		require.ErrorIs(t, err, errs.ErrInvalidCredentials)
		require.ErrorContains(t, err, auth.UserNotFoundErr.Error())

		require.NoError(t, f.userRepo.SetBlocked(testUserEmail, true))
		_, _, err = f.service.Login(testUserEmail, testUserPassword)
		require.ErrorIs(t, err, errs.ErrInvalidCredentials)
		require.ErrorContains(t, err, auth.UserBlockedErr.Error())
	})
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t)
	_, first, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	second, err := f.service.Refresh(first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, f.clock.Now().Add(30*time.Minute), second.ExpiresAt)

	_, err = f.service.Refresh(first.RefreshToken)
	require.ErrorIs(t, err, errs.ErrInvalidRefreshToken)

	require.NoError(t, f.userRepo.SetBlocked(testUserEmail, true))
	_, err = f.service.Refresh(second.RefreshToken)
	require.ErrorIs(t, err, errs.ErrInvalidRefreshToken)
}

func TestRefreshTokenExpiry(t *testing.T) {
	f := setupTestFixture(t)
	_, tokens, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.service.Refresh(tokens.RefreshToken)
	require.ErrorIs(t, err, errs.ErrRefreshTokenExpired)
}

func TestRevoke(t *testing.T) {
	f := setupTestFixture(t)
	_, tokens, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)

	require.NoError(t, f.service.Revoke(tokens.RefreshToken))
	require.NoError(t, f.service.Revoke(tokens.RefreshToken))
	_, err = f.service.Refresh(tokens.RefreshToken)
	require.ErrorIs(t, err, errs.ErrInvalidRefreshToken)
}

func TestVerifyAccessKey(t *testing.T) {
	f := setupTestFixture(t)

	member, tokens, err := f.service.VerifyAccessKey(" fab-test-001 ")
	require.NoError(t, err)
	require.Equal(t, f.member.ID, member.ID)
	require.Empty(t, member.AccessKeyHash)
	require.Empty(t, tokens.RefreshToken)
	require.Equal(t, f.clock.Now().Add(15*time.Minute), tokens.ExpiresAt)

	claims, err := f.service.Authenticate(tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, token.KindMember, claims.Kind)

	_, _, err = f.service.VerifyAccessKey("FAB-NOPE-999")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	f := setupTestFixture(t)
	_, tokens, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(31 * time.Minute)
		defer f.clock.Advance(-31 * time.Minute)
		_, err := f.service.Authenticate(tokens.AccessToken)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other := token.NewIssuer(token.NewHMACSigner("other"), issuer, token.WithNowFunc(f.clock.Now))
		raw, _, err := other.Issue(token.Subject{ID: f.user.ID, Kind: token.KindUser}, time.Minute)
		require.NoError(t, err)
		_, err = f.service.Authenticate(raw)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("unknown subject", func(t *testing.T) {
		raw, _, err := f.issuer.Issue(token.Subject{ID: "ghost", Kind: token.KindUser}, time.Minute)
		require.NoError(t, err)
		_, err = f.service.Authenticate(raw)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("userinfo", func(t *testing.T) {
		info, err := f.service.UserInfo(tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, f.user.ID, info["sub"])
		require.Equal(t, testUserEmail, info["email"])
		require.Equal(t, "editor", info["role"])
	})

	t.Run("userinfo rejects member tokens", func(t *testing.T) {
		_, memberTokens, err := f.service.VerifyAccessKey(testAccessKey)
		require.NoError(t, err)
		_, err = f.service.UserInfo(memberTokens.AccessToken)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})
}
