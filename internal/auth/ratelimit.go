package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles login attempts per client IP using a Redis
// INCR+EXPIRE counter.
type RateLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

// NewRateLimiter builds a RateLimiter allowing max attempts per window.
func NewRateLimiter(rdb *redis.Client, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, max: max, window: window}
}

func (r *RateLimiter) key(ip string) string {
	return fmt.Sprintf("login_ratelimit:%s", ip)
}

// Allow increments the attempt counter for ip and reports whether the
// caller is still under the limit. The counter's TTL is (re)armed only on
// the first increment of the window.
func (r *RateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	key := r.key(ip)

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("incrementing rate limit counter: %w", err)
	}

	return incr.Val() <= int64(r.max), nil
}

// Reset clears the attempt counter for ip, used after a successful login.
func (r *RateLimiter) Reset(ctx context.Context, ip string) error {
	return r.rdb.Del(ctx, r.key(ip)).Err()
}
