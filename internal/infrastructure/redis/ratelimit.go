package redis

import (
	"context"
	"time"

	"backoffice/boilerplate/internal/usecase/resource"

	"github.com/redis/go-redis/v9"
)

// hitScript counts a hit and starts the window on the first one in a single step.
var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RateLimiter is a fixed window counter: the first hit of a window sets its expiry.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit hits per key per window.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: limit, window: window}
}

var _ resource.RateLimiter = (*RateLimiter)(nil)

// Allow counts one hit for key.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := hitScript.Run(ctx, r.rdb, []string{key}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(r.limit), nil
}
