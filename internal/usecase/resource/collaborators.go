package resource

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores serialized gateway responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// RateLimiter reports whether key may perform one more write in the current window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Locker grants exclusive leases on keys. Release must only free a lease the
// caller still owns.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }
func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error { return nil }
func (noopCache) Incr(context.Context, string) (int64, error) { return 0, nil }

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
