package audit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "audit:idem:"

// RedisIdempotencyStore shares dedup state across instances.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, idempotencyKeyPrefix+key).Result()
	return n > 0, err
}

func (s *RedisIdempotencyStore) MarkApplied(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyKeyPrefix+key, "1", ttl).Err()
}
