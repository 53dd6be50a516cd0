package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key this service writes.
const DefaultRedisPrefix = "reactions:"

// Redis stores entries with native key expiry, so Sweep has nothing to do.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps a connected client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// DialRedis parses url, connects and pings.
func DialRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedis(client, ""), nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	k := r.prefix + key
	pipe := r.client.Pipeline()
	get := pipe.Get(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false, fmt.Errorf("redis get: %w", err)
	}

	value, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("redis get: %w", err)
	}

	// -1 means no expiry was set
	expires := time.Now().Add(100 * 365 * 24 * time.Hour)
	if d := ttl.Val(); d > 0 {
		expires = time.Now().Add(d)
	}
	return value, expires, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, expires time.Time) error {
	ttl := time.Until(expires)
	if ttl <= 0 {
		return r.Delete(ctx, key)
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Evict is a no-op: Redis expires keys itself, so a key that is still
// present was written after the stale read.
func (r *Redis) Evict(context.Context, string, time.Time) error { return nil }

func (r *Redis) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

// Len counts keys under the prefix with SCAN.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Close releases the client.
func (r *Redis) Close() error { return r.client.Close() }
