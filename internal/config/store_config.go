package config

// StoreConfig selects and configures the credential store backend.
type StoreConfig interface {
	GetStoreBackend() string
	GetStorePath() string
	GetStoreNamespace() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

const (
	StoreBackendMemory = "memory"
	StoreBackendSQLite = "sqlite"
	StoreBackendRedis  = "redis"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() string {
	return GetEnv("STORE_BACKEND", StoreBackendMemory)
}

// GetStorePath is the SQLite file used by the sqlite backend.
func (Store) GetStorePath() string {
	return GetEnv("STORE_PATH", "./data/portal-session.db")
}

// GetStoreNamespace scopes keys in shared backends (redis).
func (Store) GetStoreNamespace() string {
	return GetEnv("STORE_NAMESPACE", "crec")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}
