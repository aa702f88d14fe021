// Package ratelimit implements fixed-window request limits and per-key
// cooldowns in Redis, shared by every API instance.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLimit    = 10
	DefaultWindow   = 15 * time.Minute
	DefaultCooldown = 2 * time.Minute
)

// Limiter counts requests per (purpose, key) in Redis.
type Limiter struct {
	client   redis.UniversalClient
	limit    int64
	window   time.Duration
	cooldown time.Duration
}

// Option configures a Limiter
type Option func(*Limiter)

func WithLimit(limit int, window time.Duration) Option {
	return func(l *Limiter) {
		l.limit = int64(limit)
		l.window = window
	}
}

func WithCooldown(d time.Duration) Option {
	return func(l *Limiter) {
		l.cooldown = d
	}
}

func NewLimiter(client redis.UniversalClient, opts ...Option) *Limiter {
	l := &Limiter{
		client:   client,
		limit:    DefaultLimit,
		window:   DefaultWindow,
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request for key under purpose and reports whether it
// is still within the window's limit.
func (l *Limiter) Allow(ctx context.Context, purpose, key string) (bool, error) {
	k := windowKey(purpose, key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record request: %w", err)
	}

	return incr.Val() <= l.limit, nil
}

// AcquireCooldown starts a cooldown for key. It returns false if one is
// already running.
func (l *Limiter) AcquireCooldown(ctx context.Context, purpose, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, cooldownKey(purpose, key), 1, l.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set cooldown: %w", err)
	}
	return ok, nil
}

// Reset clears the counter for key. Used after a successful login.
func (l *Limiter) Reset(ctx context.Context, purpose, key string) error {
	if err := l.client.Del(ctx, windowKey(purpose, key)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

func windowKey(purpose, key string) string {
	return "ratelimit:" + purpose + ":" + strings.ToLower(key)
}

func cooldownKey(purpose, key string) string {
	return "cooldown:" + purpose + ":" + strings.ToLower(key)
}
