// Package ratelimit implements fixed-window rate limiting on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Key patterns:
// - ratelimit:{ip}:auth      - auth attempts per IP
// - ratelimit:{user_id}:write - post creates and media uploads per user
// - ratelimit:{ip}:search    - search queries per IP
// - ratelimit:{ip}:global    - gateway-wide requests per IP

// Config contains the limits per window.
type Config struct {
	AuthLimit    int
	AuthWindow   time.Duration
	WriteLimit   int
	WriteWindow  time.Duration
	SearchLimit  int
	SearchWindow time.Duration
	GlobalLimit  int
	GlobalWindow time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AuthLimit:    5, // 5 auth attempts per minute
		AuthWindow:   60 * time.Second,
		WriteLimit:   30, // 30 writes per minute
		WriteWindow:  60 * time.Second,
		SearchLimit:  60,
		SearchWindow: 60 * time.Second,
		GlobalLimit:  300,
		GlobalWindow: 60 * time.Second,
	}
}

// Limiter handles rate limiting using Redis.
type Limiter struct {
	client *goredis.Client
	config Config
}

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

// NewLimiter creates a new rate limiter.
func NewLimiter(client *goredis.Client, config Config) *Limiter {
	return &Limiter{client: client, config: config}
}

// AllowAuth checks if an IP can make an auth attempt.
func (r *Limiter) AllowAuth(ctx context.Context, ip string) (*Result, error) {
	key := fmt.Sprintf("ratelimit:%s:auth", ip)
	return r.checkLimit(ctx, key, r.config.AuthLimit, r.config.AuthWindow)
}

// AllowWrite checks if a user can create a post or upload media.
func (r *Limiter) AllowWrite(ctx context.Context, userID string) (*Result, error) {
	key := fmt.Sprintf("ratelimit:%s:write", userID)
	return r.checkLimit(ctx, key, r.config.WriteLimit, r.config.WriteWindow)
}

// AllowGlobal checks the gateway-wide per-IP budget.
func (r *Limiter) AllowGlobal(ctx context.Context, ip string) (*Result, error) {
	key := fmt.Sprintf("ratelimit:%s:global", ip)
	return r.checkLimit(ctx, key, r.config.GlobalLimit, r.config.GlobalWindow)
}

// AllowSearch checks if an IP can run a search query.
func (r *Limiter) AllowSearch(ctx context.Context, ip string) (*Result, error) {
	key := fmt.Sprintf("ratelimit:%s:search", ip)
	return r.checkLimit(ctx, key, r.config.SearchLimit, r.config.SearchWindow)
}

// checkLimit performs an atomic increment-and-check via a Lua script.
func (r *Limiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	script := goredis.NewScript(`
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call('GET', key)
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		local ttl = redis.call('TTL', key)
		if ttl < 0 then
			ttl = window
		end

		if current < limit then
			redis.call('INCR', key)
			if ttl == window then
				redis.call('EXPIRE', key, window)
			end
			return {1, limit - current - 1, ttl}
		else
			return {0, 0, ttl}
		end
	`)

	result, err := script.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	allowed := resultSlice[0].(int64) == 1
	remaining := int(resultSlice[1].(int64))
	resetIn := time.Duration(resultSlice[2].(int64)) * time.Second

	return &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetIn:   resetIn,
		Limit:     limit,
	}, nil
}

// Reset clears the counter for a key.
func (r *Limiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
