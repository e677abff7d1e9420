package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, cfg), mr
}

func TestAllowsUpToTheLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthLimit = 3
	limiter, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.AllowAuth(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := limiter.AllowAuth(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestWindowResets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthLimit = 1
	cfg.AuthWindow = 60 * time.Second
	limiter, mr := newTestLimiter(t, cfg)
	ctx := context.Background()

	res, err := limiter.AllowAuth(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = limiter.AllowAuth(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	mr.FastForward(61 * time.Second)

	res, err = limiter.AllowAuth(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestKeysAreIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WriteLimit = 1
	limiter, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	res, err := limiter.AllowWrite(ctx, "user-a")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = limiter.AllowWrite(ctx, "user-a")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	res, err = limiter.AllowWrite(ctx, "user-b")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
