package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists records in Redis under a scope prefix, using the
// native EX facility for TTL rather than a side-channel expiry queue.
type RedisStore[T any] struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing *redis.Client. prefix namespaces keys
// for this store's record type (e.g. "registered_clients").
func NewRedisStore[T any](client *redis.Client, prefix string) *RedisStore[T] {
	return &RedisStore[T]{client: client, prefix: prefix}
}

func (s *RedisStore[T]) fullKey(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.fullKey(key), raw, ttl).Err()
}

func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	raw, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false, err
	}
	return value, true, nil
}

func (s *RedisStore[T]) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.fullKey(key)).Err()
}
