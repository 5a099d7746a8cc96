package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/boilerplate/internal/usecase/resource"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned once every acquisition attempt failed.
var ErrLockNotAcquired = errors.New("lock not acquired")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockConfig tunes lease length and acquisition retries.
type LockConfig struct {
	TTL        time.Duration
	RetryCount int
	RetryDelay time.Duration
}

// Locker grants leases with SET NX PX and releases them with a compare-and-delete script.
type Locker struct {
	rdb *redis.Client
	cfg LockConfig
}

// NewLocker wraps rdb.
func NewLocker(rdb *redis.Client, cfg LockConfig) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	return &Locker{rdb: rdb, cfg: cfg}
}

var _ resource.Locker = (*Locker)(nil)

// Acquire blocks until the lease on key is held, retries are exhausted or ctx ends.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()

	attempt := func() error {
		ok, err := l.rdb.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("set lock: %w", err))
		}
		if !ok {
			return ErrLockNotAcquired
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(l.cfg.RetryDelay), uint64(l.cfg.RetryCount))
	if err := backoff.Retry(attempt, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("release lock %s: lease lost", key)
		}
		return nil
	}
	return release, nil
}
