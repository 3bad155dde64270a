// Package storetest is a conformance suite every credstore.Backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/crec-session/credstore"
	"github.com/stretchr/testify/require"
)

// RunBackendSuite exercises newBackend against the Backend contract. Each sub-test
// gets a fresh backend.
func RunBackendSuite(t *testing.T, newBackend func(t *testing.T) credstore.Backend) {
	ctx := context.Background()

	t.Run("get absent", func(t *testing.T) {
		b := newBackend(t)
		v, ok, err := b.Get(ctx, "missing")
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("set many then get", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
		v, ok, err := b.Get(ctx, "b")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "2", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.SetMany(ctx, map[string]string{"a": "1"}))
		require.NoError(t, b.SetMany(ctx, map[string]string{"a": "3"}))
		v, _, err := b.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, "3", v)
	})

	t.Run("empty value is present", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.SetMany(ctx, map[string]string{"a": ""}))
		_, ok, err := b.Get(ctx, "a")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.SetMany(ctx, map[string]string{"a": "1", "b": "2", "c": "3"}))
		require.NoError(t, b.Delete(ctx, "a", "b"))
		require.NoError(t, b.Delete(ctx, "a", "b"))
		_, ok, _ := b.Get(ctx, "a")
		require.False(t, ok)
		_, ok, _ = b.Get(ctx, "c")
		require.True(t, ok)
	})

	t.Run("set if present", func(t *testing.T) {
		b := newBackend(t)
		written, err := b.SetIfPresent(ctx, "guard", map[string]string{"a": "1"})
		require.NoError(t, err)
		require.False(t, written)
		_, ok, err := b.Get(ctx, "a")
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, b.SetMany(ctx, map[string]string{"guard": ""}))
		written, err = b.SetIfPresent(ctx, "guard", map[string]string{"a": "1", "b": "2"})
		require.NoError(t, err)
		require.True(t, written)
		v, ok, err := b.Get(ctx, "b")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "2", v)

		require.NoError(t, b.Delete(ctx, "guard", "a", "b"))
		written, err = b.SetIfPresent(ctx, "guard", map[string]string{"a": "3"})
		require.NoError(t, err)
		require.False(t, written)
		_, ok, err = b.Get(ctx, "a")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("store record round trip and clear", func(t *testing.T) {
		b := newBackend(t)
		admin := credstore.New(b, "")
		fablab := credstore.New(b, "fablab_")
		rec := SampleRecord()
		require.NoError(t, admin.Save(ctx, rec))
		require.NoError(t, fablab.Save(ctx, rec))

		got, err := admin.Load(ctx)
		require.NoError(t, err)
		RequireRecordEqual(t, rec, got)

		require.NoError(t, admin.Clear(ctx))
		got, err = admin.Load(ctx)
		require.NoError(t, err)
		require.True(t, got.Empty())

		// Other prefix untouched
		got, err = fablab.Load(ctx)
		require.NoError(t, err)
		RequireRecordEqual(t, rec, got)
	})
}
