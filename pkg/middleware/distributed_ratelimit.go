package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedRateLimiter counts requests per key in fixed Redis windows so
// that every replica of the service draws from the same budget.
type DistributedRateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewDistributedRateLimiter creates a Redis-backed limiter. Keys are stored
// as "<prefix>:<key>"; prefix defaults to "ratelimit".
func NewDistributedRateLimiter(client *redis.Client, cfg *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if cfg == nil {
		cfg = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  client,
		limit:  cfg.RequestsPerWindow,
		window: cfg.WindowDuration,
		prefix: prefix,
	}
}

// Allow counts one request against key's current window. When Redis fails
// the request is allowed and the error returned, leaving the choice to the
// caller.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := rl.prefix + ":" + key

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return rl.unavailable(err)
	}

	// No expiry means the key is new or a previous PEXPIRE was lost
	resetAfter := ttl.Val()
	if resetAfter < 0 {
		if err := rl.redis.PExpire(ctx, k, rl.window).Err(); err != nil {
			return rl.unavailable(err)
		}
		resetAfter = rl.window
	}

	count := int(incr.Val())
	return Decision{
		Allowed:    count <= rl.limit,
		Limit:      rl.limit,
		Remaining:  max(rl.limit-count, 0),
		ResetAfter: resetAfter,
	}, nil
}

func (rl *DistributedRateLimiter) unavailable(err error) (Decision, error) {
	return Decision{Allowed: true, Limit: rl.limit}, fmt.Errorf("redis rate limiter: %w", err)
}

// Backend implements Limiter
func (rl *DistributedRateLimiter) Backend() string {
	return BackendRedis
}
