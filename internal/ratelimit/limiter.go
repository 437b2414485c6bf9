// Package ratelimit bounds how often a principal may perform an action.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limits sets the per-window ceilings; zero disables a window.
type Limits struct {
	PerMinute int
	PerHour   int
}

// Limiter decides whether the action identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter keeps a sliding window per key in a sorted set.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limits Limits
}

// NewRedisLimiter builds a limiter storing its windows under prefix.
func NewRedisLimiter(client *redis.Client, prefix string, limits Limits) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limits: limits}
}

// Allow records the attempt and reports whether every window is under its limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	windows := []struct {
		duration time.Duration
		limit    int
	}{
		{time.Minute, l.limits.PerMinute},
		{time.Hour, l.limits.PerHour},
	}

	for _, window := range windows {
		if window.limit <= 0 {
			continue
		}
		allowed, err := l.checkWindow(ctx, key, window.duration, window.limit, now)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

func (l *RedisLimiter) checkWindow(ctx context.Context, key string, window time.Duration, limit int, now time.Time) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s:%s", l.prefix, key, window)
	windowStart := now.Add(-window).UnixNano()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	count := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit window: %w", err)
	}
	return count.Val() < int64(limit), nil
}

// Unlimited allows everything; used when limiting is disabled.
type Unlimited struct{}

// Allow always returns true.
func (Unlimited) Allow(context.Context, string) (bool, error) {
	return true, nil
}
