package refresh_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/crec-session/internal/config"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/token/refresh"
	refreshrepofake "github.com/jrsteele09/crec-session/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndRotate(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), config.OAuth{},
		refresh.WithNowFunc(func() time.Time { return now }))

	first, err := m.Create("portal", "u-1")
	require.NoError(t, err)
	require.Len(t, first, 64)

	t.Run("second create replaces first", func(t *testing.T) {
		second, err := m.Create("portal", "u-1")
		require.NoError(t, err)
		_, err = m.Get(first)
		require.Error(t, err)
		first = second
	})

	t.Run("rotate", func(t *testing.T) {
		stored, next, err := m.Rotate(first)
		require.NoError(t, err)
		require.Equal(t, "u-1", stored.SubjectID)
		require.NotEqual(t, first, next)

		_, _, err = m.Rotate(first)
		require.ErrorIs(t, err, errs.ErrInvalidRefreshToken)
		first = next
	})

	t.Run("expired", func(t *testing.T) {
		now = now.Add(8 * 24 * time.Hour)
		_, _, err := m.Rotate(first)
		require.ErrorIs(t, err, errs.ErrRefreshTokenExpired)
	})
}
