package token_test

import (
	"testing"
	"time"

	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/token"
	"github.com/stretchr/testify/require"
)

func TestIssuer_IssueAndParse(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := token.NewIssuer(token.NewHMACSigner("secret"), "https://api.crec.edu", token.WithNowFunc(clock))

	raw, exp, err := issuer.Issue(token.Subject{
		ID:          "u-1",
		Kind:        token.KindUser,
		Role:        "admin",
		Permissions: []string{"courses:read"},
	}, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, now.Add(30*time.Minute), exp)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.Subject)
	require.Equal(t, token.KindUser, claims.Kind)
	require.Equal(t, []string{"courses:read"}, claims.Permissions)
	require.NotEmpty(t, claims.ID)

	t.Run("expired", func(t *testing.T) {
		now = now.Add(31 * time.Minute)
		_, err := issuer.Parse(raw)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := token.NewIssuer(token.NewHMACSigner("other"), "https://api.crec.edu", token.WithNowFunc(clock))
		_, err := other.Parse(raw)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})
}
