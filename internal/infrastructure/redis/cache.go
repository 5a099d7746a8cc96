package redis

import (
	"context"
	"errors"
	"time"

	"backoffice/boilerplate/internal/usecase/resource"

	"github.com/redis/go-redis/v9"
)

// Cache stores gateway responses as plain string values.
type Cache struct {
	rdb *redis.Client
}

// NewCache wraps rdb.
func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

var _ resource.Cache = (*Cache)(nil)

// Get returns resource.ErrCacheMiss for absent keys.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, resource.ErrCacheMiss
	}
	return b, err
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}
