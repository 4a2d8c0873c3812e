// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"auth-gateway/internal/domain"
	"auth-gateway/pkg/redis"
)

// Counter increments a windowed counter
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter allows at most limit requests per route and client per window
type Limiter struct {
	counter Counter
	keys    *redis.KeyBuilder
	limit   int64
	window  time.Duration
	log     *zap.Logger
}

// NewLimiter creates a limiter over counter
func NewLimiter(counter Counter, keys *redis.KeyBuilder, limit int64, window time.Duration, log *zap.Logger) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{counter: counter, keys: keys, limit: limit, window: window, log: log}
}

// Allow counts one request. When Redis fails the request is let through.
func (l *Limiter) Allow(ctx context.Context, route, clientKey string) (*domain.RateLimitDecision, error) {
	count, left, err := l.counter.IncrWindow(ctx, l.keys.KeyRateLimit(route, clientKey), l.window)
	if err != nil {
		l.log.Warn("rate limiter unavailable, allowing request", zap.String("route", route), zap.Error(err))
		return &domain.RateLimitDecision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetIn: l.window}, nil
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &domain.RateLimitDecision{
		Allowed:   count <= l.limit,
		Count:     count,
		Limit:     l.limit,
		Remaining: remaining,
		ResetIn:   left,
	}, nil
}
