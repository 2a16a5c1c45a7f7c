package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter shared by every worker replica.
type RateLimiter struct {
	c      *redis.Client
	prefix string
}

func NewRateLimiter(addr string) *RateLimiter {
	return &RateLimiter{
		c:      redis.NewClient(&redis.Options{Addr: addr}),
		prefix: DefaultPrefix,
	}
}

// Allow counts one call in the window named by key. The counter and its
// expiry go out in one transaction; EXPIRE NX starts the window on the first
// call and leaves it alone afterwards.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	k := rl.prefix + key
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}

func (rl *RateLimiter) Close() error {
	return rl.c.Close()
}
