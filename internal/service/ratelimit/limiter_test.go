package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/pkg/redis"
)

func newTestLimiter(t *testing.T, limit int64) (*miniredis.Miniredis, *Limiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "production", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewLimiter(client, client.KeyBuilder, limit, time.Minute, nil)
}

func TestLimiter_Allow(t *testing.T) {
	mr, limiter := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		decision, err := limiter.Allow(ctx, "login", "203.0.113.1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(2-i), decision.Remaining)
	}

	decision, err := limiter.Allow(ctx, "login", "203.0.113.1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(0), decision.Remaining)

	// other routes and clients have their own windows
	decision, err = limiter.Allow(ctx, "kakao", "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	decision, err = limiter.Allow(ctx, "login", "203.0.113.2")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	mr.FastForward(time.Minute + time.Second)
	decision, err = limiter.Allow(ctx, "login", "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestLimiter_FailsOpen(t *testing.T) {
	mr, limiter := newTestLimiter(t, 1)
	mr.Close()

	decision, err := limiter.Allow(context.Background(), "login", "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
