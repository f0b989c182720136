package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces idempotency keys in Redis.
const RedisKeyPrefix = "moodtune:idem:"

// RedisClient is the subset of *redis.Client the deduper uses.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDeduper shares idempotency keys between service instances. Keys expire
// through Redis TTLs.
type RedisDeduper struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper backed by client.
func NewRedisDeduper(client RedisClient, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// SeenAndRecord implements Deduper using SET NX.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, key string) (bool, error) {
	created, err := d.client.SetNX(ctx, RedisKeyPrefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record idempotency key: %w", err)
	}
	return !created, nil
}

// Unrecord implements Deduper.
func (d *RedisDeduper) Unrecord(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, RedisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("forget idempotency key: %w", err)
	}
	return nil
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}
