// Package redis implements a per-client sliding window rate limiter on Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "aiui:ratelimit:"

// Limiter implements RateLimiter using a Redis sorted set per key
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLimiter creates a limiter allowing limit requests per window
func NewLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Allow reports whether the request identified by key may proceed.
// Redis failures fail open.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	result, err := slidingWindowScript.Run(
		ctx, l.client, []string{getLimitKey(key)}, now, l.window.Milliseconds(), l.limit, member).Int()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err))
		return true
	}

	return result == 0
}

// getLimitKey returns the Redis key for a client key
func getLimitKey(key string) string {
	return keyPrefix + key
}
