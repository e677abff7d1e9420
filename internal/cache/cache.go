// Package cache is the read-through cache fronting paginated and
// single-item reads. Values are JSON-encoded response bodies; a fixed
// TTL backstops any missed invalidation. The cache is advisory, never
// authoritative: a miss or a cache failure always falls back to the
// source of truth.
package cache

import (
	"context"
	"strings"
	"time"

	"openfeed/internal/metrics"

	goredis "github.com/redis/go-redis/v9"
)

// Config contains configuration for caching.
type Config struct {
	TTL time.Duration // backstop expiry for every entry
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{TTL: 300 * time.Second}
}

// Store handles caching in Redis.
type Store struct {
	client *goredis.Client
	config Config
}

// NewStore creates a new cache store.
func NewStore(client *goredis.Client, config Config) *Store {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return &Store{client: client, config: config}
}

// Get returns the cached value, or (nil, nil) on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		metrics.CacheMisses.WithLabelValues(keyPrefix(key)).Inc()
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}
	metrics.CacheHits.WithLabelValues(keyPrefix(key)).Inc()
	return data, nil
}

// Set stores value under key with the configured backstop TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, s.config.TTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Invalidate removes a single key. Removing an absent key is a no-op.
func (s *Store) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// InvalidatePrefix removes every key under prefix. Any page of a
// listing may contain or omit a mutated item, so writers invalidate the
// whole listing namespace rather than guessing which pages changed.
func (s *Store) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	var keysToDelete []string
	for iter.Next(ctx) {
		keysToDelete = append(keysToDelete, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keysToDelete) > 0 {
		return s.client.Del(ctx, keysToDelete...).Err()
	}
	return nil
}

// Ping checks if the cache is available.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
