package cachetable

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend string
	Prefix  string
}

// New selects the backend named by cfg. The redis client and postgres pool
// are only required by their own backend.
func New(cfg Config, redisClient redis.UniversalClient, db Querier) (Table, error) {
	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("cachetable: redis backend requires a redis client")
		}
		return NewRedisTable(redisClient, cfg.Prefix), nil
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("cachetable: postgres backend requires a database pool")
		}
		return NewPostgresTable(db), nil
	case BackendMemory, "":
		return NewMemoryTable(), nil
	default:
		return nil, fmt.Errorf("cachetable: unknown backend %q", cfg.Backend)
	}
}
