package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/crec-session/credstore"
	"github.com/jrsteele09/crec-session/credstore/redisstore"
	"github.com/jrsteele09/crec-session/credstore/storetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisTest(t *testing.T) (*miniredis.Miniredis, *redisstore.Backend) {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := redisstore.Open(context.Background(), &redis.Options{Addr: mr.Addr()}, "crec")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return mr, b
}

func TestBackend(t *testing.T) {
	storetest.RunBackendSuite(t, func(t *testing.T) credstore.Backend {
		_, b := newRedisTest(t)
		return b
	})
}

func TestBackend_Namespace(t *testing.T) {
	mr, b := newRedisTest(t)
	require.NoError(t, credstore.New(b, "fablab_").Save(context.Background(), storetest.SampleRecord()))

	v, err := mr.Get("crec:fablab_token")
	require.NoError(t, err)
	require.Equal(t, "access-1", v)
	require.False(t, mr.Exists("fablab_token"))
}

func TestBackend_ClearRemovesAllKeys(t *testing.T) {
	mr, b := newRedisTest(t)
	s := credstore.New(b, "")
	require.NoError(t, s.Save(context.Background(), storetest.SampleRecord()))
	require.Len(t, mr.Keys(), 5)

	require.NoError(t, s.Clear(context.Background()))
	require.Empty(t, mr.Keys())
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := redisstore.Open(context.Background(), &redis.Options{Addr: addr, MaxRetries: -1}, "crec")
	require.Error(t, err)
}
