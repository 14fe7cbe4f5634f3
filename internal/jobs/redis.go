package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps jobs under <prefix>:job:<id> and pointers under
// <prefix>:jobByCache:<fingerprint>. Keys never expire.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(parts ...string) string {
	k := ""
	if s.prefix != "" {
		k = s.prefix + ":"
	}
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, bool, error) {
	raw, err := s.client.Get(ctx, s.key("job", id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, false, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, true, nil
}

func (s *RedisStore) Put(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" || !job.Type.Valid() {
		return ErrInvalidJob
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, s.key("job", job.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set job: %w", err)
	}
	return nil
}

func (s *RedisStore) GetPointer(ctx context.Context, fingerprint string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key("jobByCache", fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get pointer: %w", err)
	}
	return id, true, nil
}

func (s *RedisStore) PutPointer(ctx context.Context, fingerprint, jobID string) error {
	if err := s.client.Set(ctx, s.key("jobByCache", fingerprint), jobID, 0).Err(); err != nil {
		return fmt.Errorf("redis set pointer: %w", err)
	}
	return nil
}
