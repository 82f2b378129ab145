package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts requests in fixed windows shared by every
// instance. A key expires with its window.
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisRateLimiter creates a limiter on a shared client
func NewRedisRateLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = "thirdhand:ratelimit:"
	}
	return &RedisRateLimiter{client: client, keyPrefix: keyPrefix, limit: limit, window: window}
}

// Allow increments the window counter of key
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	fullKey := l.keyPrefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to count request: %w", err)
	}

	count := int(incr.Val())
	if count > l.limit {
		return false, 0, nil
	}
	return true, l.limit - count, nil
}

// Limit returns the requests allowed per window
func (l *RedisRateLimiter) Limit() int { return l.limit }

// Window returns the window length
func (l *RedisRateLimiter) Window() time.Duration { return l.window }
