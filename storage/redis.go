package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is a Redis-backed [Backend]. Every key is namespaced as
// "<prefix>:<origin>:<key>" so several client origins can share one Redis.
//
//	Performance: 1 Redis command per operation.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
	origin string
	ttl    time.Duration
}

// NewRedisBackend creates a [RedisBackend]. A zero ttl stores keys without
// expiry, matching browser local storage.
func NewRedisBackend(client redis.UniversalClient, prefix, origin string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		redis:  client,
		prefix: prefix,
		origin: normalizeOrigin(origin),
		ttl:    ttl,
	}
}

func (b *RedisBackend) key(name string) string {
	return b.prefix + ":" + b.origin + ":" + name
}

func normalizeOrigin(origin string) string {
	if origin == "" {
		return "0"
	}
	return origin
}

// Key returns the fully-qualified Redis key for name.
func (b *RedisBackend) Key(name string) string {
	return b.key(name)
}

func (b *RedisBackend) Get(ctx context.Context, name string) (string, bool, error) {
	v, err := b.redis.Get(ctx, b.key(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, name, value string) error {
	if err := b.redis.Set(ctx, b.key(name), value, b.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes all named keys with one DEL.
func (b *RedisBackend) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = b.key(n)
	}
	if err := b.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (b *RedisBackend) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := b.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
