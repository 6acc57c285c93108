// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const redisLimiterPrefix = "vote:ratelimit:"

// slidingWindow prunes, counts and records in one step so concurrent
// requests for the same key cannot both take the last slot.
// KEYS[1] key, ARGV[1] now ms, ARGV[2] window ms, ARGV[3] max, ARGV[4] member.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= max then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisLimiter is a RateLimiter shared by every process using the same Redis.
type RedisLimiter struct {
	client      redis.UniversalClient
	clock       clockwork.Clock
	maxAttempts int
	window      time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, clock clockwork.Clock, maxAttempts int, window time.Duration) *RedisLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{
		client:      client,
		clock:       clock,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := slidingWindow.Run(ctx, l.client,
		[]string{redisLimiterPrefix + key},
		l.clock.Now().UnixMilli(),
		l.window.Milliseconds(),
		l.maxAttempts,
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return allowed == 1, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, redisLimiterPrefix+key).Err(); err != nil {
		return fmt.Errorf("rate limit reset failed: %w", err)
	}
	return nil
}
