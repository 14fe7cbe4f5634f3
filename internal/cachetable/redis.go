package cachetable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTable implements Table on Redis. Rows never expire.
type RedisTable struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTable(client redis.UniversalClient, prefix string) *RedisTable {
	return &RedisTable{client: client, prefix: prefix}
}

func (t *RedisTable) key(fingerprint string) string {
	if t.prefix == "" {
		return "cache:" + fingerprint
	}
	return t.prefix + ":cache:" + fingerprint
}

func (t *RedisTable) Get(ctx context.Context, fingerprint string) (Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, false, fmt.Errorf("context error: %w", err)
	}

	raw, err := t.client.Get(ctx, t.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return Row{}, false, fmt.Errorf("decode cache row: %w", err)
	}
	return row, true, nil
}

// Insert uses SETNX so the first writer wins.
func (t *RedisTable) Insert(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if row.Fingerprint == "" {
		return errors.New("cachetable: fingerprint is required")
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode cache row: %w", err)
	}
	if err := t.client.SetNX(ctx, t.key(row.Fingerprint), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	return nil
}
