package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend on a Redis client.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend parses redisURL and verifies connectivity.
func NewRedisBackend(ctx context.Context, redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

// Get maps redis.Nil to ErrMiss.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	value, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Set stores value with a TTL.
func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Incr increments the counter at key.
func (b *RedisBackend) Incr(ctx context.Context, key string) (int64, error) {
	count, err := b.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return count, nil
}

// Expire sets the window TTL on a counter key.
func (b *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := b.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
