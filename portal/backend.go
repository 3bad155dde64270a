package portal

import (
	"context"

	"github.com/jrsteele09/crec-session/credstore"
	"github.com/jrsteele09/crec-session/credstore/memstore"
	"github.com/jrsteele09/crec-session/credstore/redisstore"
	"github.com/jrsteele09/crec-session/credstore/sqlitestore"
	"github.com/jrsteele09/crec-session/internal/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// OpenBackend opens the storage backend named by STORE_BACKEND.
func OpenBackend(ctx context.Context, cfg config.StoreConfig) (credstore.Backend, error) {
	switch cfg.GetStoreBackend() {
	case config.StoreBackendMemory:
		return memstore.New(), nil
	case config.StoreBackendSQLite:
		backend, err := sqlitestore.Open(ctx, cfg.GetStorePath())
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.StoreBackendRedis:
		backend, err := redisstore.Open(ctx, &redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		}, cfg.GetStoreNamespace())
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, errors.Errorf("[portal.OpenBackend] unknown store backend %q", cfg.GetStoreBackend())
	}
}
