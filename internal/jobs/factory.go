package jobs

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Backend string
	Prefix  string
}

func NewStore(cfg Config, redisClient redis.UniversalClient) (Store, error) {
	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("jobs: redis backend requires a redis client")
		}
		return NewRedisStore(redisClient, cfg.Prefix), nil
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("jobs: unknown backend %q", cfg.Backend)
	}
}
