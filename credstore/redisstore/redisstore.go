// Package redisstore keeps the credential store in Redis, so several processes
// of one operator see the same session.
package redisstore

import (
	"context"

	"github.com/jrsteele09/crec-session/credstore"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ credstore.Backend = (*Backend)(nil)

// watchRetries bounds how often SetIfPresent restarts after the guard key
// changed between WATCH and EXEC.
const watchRetries = 3

type Backend struct {
	client    redis.UniversalClient
	namespace string
}

// New wraps client. Keys are stored as "<namespace>:<key>".
func New(client redis.UniversalClient, namespace string) *Backend {
	return &Backend{client: client, namespace: namespace}
}

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, opts *redis.Options, namespace string) (*Backend, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "[redisstore.Open] ping")
	}
	return New(client, namespace), nil
}

func (b *Backend) key(k string) string {
	if b.namespace == "" {
		return k
	}
	return b.namespace + ":" + k
}

func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.client.Get(ctx, b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "[redisstore.Get]")
	}
	return v, true, nil
}

// SetMany writes all entries inside MULTI/EXEC.
func (b *Backend) SetMany(ctx context.Context, entries map[string]string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, b.key(k), v, 0)
		}
		return nil
	})
	return errors.Wrap(err, "[redisstore.SetMany]")
}

// SetIfPresent watches guard and writes entries inside MULTI/EXEC only while it
// exists.
func (b *Backend) SetIfPresent(ctx context.Context, guard string, entries map[string]string) (bool, error) {
	for i := 0; i < watchRetries; i++ {
		written := false
		err := b.client.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, b.key(guard)).Result()
			if err != nil || n == 0 {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for k, v := range entries {
					pipe.Set(ctx, b.key(k), v, 0)
				}
				return nil
			})
			written = err == nil
			return err
		}, b.key(guard))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, errors.Wrap(err, "[redisstore.SetIfPresent]")
		}
		return written, nil
	}
	return false, errors.Wrap(redis.TxFailedErr, "[redisstore.SetIfPresent] guard kept changing")
}

// Delete removes keys inside MULTI/EXEC.
func (b *Backend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, 0, len(keys))
	for _, k := range keys {
		namespaced = append(namespaced, b.key(k))
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, namespaced...)
		return nil
	})
	return errors.Wrap(err, "[redisstore.Delete]")
}

func (b *Backend) Close() error {
	return b.client.Close()
}
