package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/crec-session/credstore"
	"github.com/jrsteele09/crec-session/credstore/sqlitestore"
	"github.com/jrsteele09/crec-session/credstore/storetest"
	"github.com/stretchr/testify/require"
)

func openTestBackend(t *testing.T, path string) *sqlitestore.Backend {
	t.Helper()
	b, err := sqlitestore.Open(context.Background(), path)
	require.NoError(t, err)
	return b
}

func TestBackend(t *testing.T) {
	storetest.RunBackendSuite(t, func(t *testing.T) credstore.Backend {
		b := openTestBackend(t, filepath.Join(t.TempDir(), "session.db"))
		t.Cleanup(func() { b.Close() })
		return b
	})
}

func TestBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	b := openTestBackend(t, path)
	rec := storetest.SampleRecord()
	require.NoError(t, credstore.New(b, "").Save(ctx, rec))
	require.NoError(t, b.Close())

	reopened := openTestBackend(t, path)
	defer reopened.Close()
	got, err := credstore.New(reopened, "").Load(ctx)
	require.NoError(t, err)
	storetest.RequireRecordEqual(t, rec, got)
}
