// Package resource implements the request pipeline shared by every CRUD
// resource: validation, rate limiting, cache-aside reads, leased writes.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	domain "backoffice/boilerplate/internal/domain/resource"
	"backoffice/boilerplate/internal/validation"

	"go.uber.org/zap"
)

// Record is implemented by every type served through a Gateway.
type Record interface {
	ResourceID() string
}

// Options wires the optional collaborators. Nil members disable the concern.
type Options struct {
	Cache    Cache
	CacheTTL time.Duration
	Limiter  RateLimiter
	Locker   Locker
	Logger   *zap.Logger
}

// Gateway exposes create, list, single, edit and destroy over a Store.
type Gateway[T Record] struct {
	def      domain.Definition
	store    domain.Store[T]
	cache    Cache
	cacheTTL time.Duration
	limiter  RateLimiter
	locker   Locker
	validate *validation.Validator
	log      *zap.Logger
}

// NewGateway constructs a gateway for def backed by store.
func NewGateway[T Record](def domain.Definition, store domain.Store[T], opts Options) *Gateway[T] {
	g := &Gateway[T]{
		def:      def,
		store:    store,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		limiter:  opts.Limiter,
		locker:   opts.Locker,
		validate: validation.New(),
		log:      opts.Logger,
	}
	if g.cache == nil {
		g.cache = noopCache{}
	}
	if g.cacheTTL <= 0 {
		g.cacheTTL = time.Hour
	}
	if g.limiter == nil {
		g.limiter = noopLimiter{}
	}
	if g.locker == nil {
		g.locker = noopLocker{}
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}
	g.log = g.log.Named("resource").With(zap.String("resource", def.Name))
	return g
}

// Name returns the resource name used in routes and cache keys.
func (g *Gateway[T]) Name() string {
	return g.def.Name
}

// Create validates body and stores a new record.
func (g *Gateway[T]) Create(ctx context.Context, caller string, body []byte) (*T, error) {
	fields, verr, err := g.decode(body, false)
	if err != nil {
		return nil, err
	}
	if err := g.allow(ctx, caller); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		g.log.Info("validation failed during add operation", zap.Any("errors", verr.Fields))
		return nil, err
	}

	item, err := g.store.Create(ctx, fields)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create %s: %w", g.def.Name, err)
	}
	g.invalidate(ctx, false)

	g.log.Info("data added successfully", zap.String("id", (*item).ResourceID()))
	return item, nil
}

// List returns every record, served from cache when possible.
func (g *Gateway[T]) List(ctx context.Context) ([]*T, error) {
	key := g.listKey()
	var items []*T
	if g.cached(ctx, key, &items) {
		return items, nil
	}

	items, err := g.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", g.def.Name, err)
	}
	if items == nil {
		items = []*T{}
	}
	g.remember(ctx, key, items)
	return items, nil
}

// Single returns the record matching the allow-listed (field, value) pair.
func (g *Gateway[T]) Single(ctx context.Context, field, value string) (*T, error) {
	filter, err := g.def.ParseFilter(field, value)
	if err != nil {
		return nil, err
	}

	key := g.singleKey(ctx, filter)
	var item T
	if g.cached(ctx, key, &item) {
		return &item, nil
	}

	found, err := g.store.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			g.log.Info("single data fetch failed, entry not found", zap.String("field", field), zap.String("value", value))
			return nil, err
		}
		return nil, fmt.Errorf("find %s: %w", g.def.Name, err)
	}
	g.remember(ctx, key, found)
	return found, nil
}

// Edit applies a partial update to the matching record and returns it.
func (g *Gateway[T]) Edit(ctx context.Context, caller, field, value string, body []byte) (*T, error) {
	filter, err := g.def.ParseFilter(field, value)
	if err != nil {
		return nil, err
	}
	fields, verr, err := g.decode(body, true)
	if err != nil {
		return nil, err
	}
	if err := g.allow(ctx, caller); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		g.log.Info("validation failed during edit operation", zap.Any("errors", verr.Fields))
		return nil, err
	}

	existing, release, err := g.lockRecord(ctx, filter)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			g.log.Info("edit operation failed, entry not found", zap.String("field", field), zap.String("value", value))
		}
		return nil, err
	}
	defer g.unlock(release)

	byID := domain.Filter{Column: domain.IDColumn, Value: (*existing).ResourceID()}
	if err := g.store.Update(ctx, byID, fields); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update %s: %w", g.def.Name, err)
	}
	g.invalidate(ctx, true, filter)

	updated, err := g.store.FindOne(ctx, byID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reload %s: %w", g.def.Name, err)
	}

	g.log.Info("data updated successfully", zap.String("id", byID.Value.(string)))
	return updated, nil
}

// Destroy deletes the matching record.
func (g *Gateway[T]) Destroy(ctx context.Context, field, value string) error {
	filter, err := g.def.ParseFilter(field, value)
	if err != nil {
		return err
	}

	existing, release, err := g.lockRecord(ctx, filter)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			g.log.Info("destroy operation failed, entry not found", zap.String("field", field), zap.String("value", value))
		}
		return err
	}
	defer g.unlock(release)

	id := (*existing).ResourceID()
	if err := g.store.Delete(ctx, domain.Filter{Column: domain.IDColumn, Value: id}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete %s: %w", g.def.Name, err)
	}
	g.invalidate(ctx, true, filter)

	g.log.Info("data deleted successfully", zap.String("id", id))
	return nil
}

func (g *Gateway[T]) allow(ctx context.Context, caller string) error {
	ok, err := g.limiter.Allow(ctx, "ratelimit:"+g.def.Name+":"+caller)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", g.def.Name, err)
	}
	if !ok {
		g.log.Info("rate limit exceeded", zap.String("caller", caller))
		return domain.ErrRateLimited
	}
	return nil
}

// lockRecord resolves filter to a record and holds the lease on its id, so
// writers addressing the record through different fields exclude each other.
// The record is looked up again under the lease and must still match filter.
func (g *Gateway[T]) lockRecord(ctx context.Context, filter domain.Filter) (*T, func(context.Context) error, error) {
	found, err := g.find(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	id := (*found).ResourceID()

	release, err := g.lock(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	current, err := g.find(ctx, filter)
	if err == nil && (*current).ResourceID() != id {
		err = domain.ErrNotFound
	}
	if err != nil {
		g.unlock(release)
		return nil, nil, err
	}
	return current, release, nil
}

func (g *Gateway[T]) find(ctx context.Context, filter domain.Filter) (*T, error) {
	item, err := g.store.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find %s: %w", g.def.Name, err)
	}
	return item, nil
}

func (g *Gateway[T]) lock(ctx context.Context, id string) (func(context.Context) error, error) {
	key := g.lockKey(id)
	release, err := g.locker.Acquire(ctx, key)
	if err != nil {
		g.log.Warn("failed to acquire lock", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrLocked, err)
	}
	return release, nil
}

func (g *Gateway[T]) unlock(release func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := release(ctx); err != nil {
		g.log.Warn("failed to release lock", zap.Error(err))
	}
}

func (g *Gateway[T]) lockKey(id string) string {
	return "lock:resource:" + g.def.Name + ":" + id
}

func (g *Gateway[T]) listKey() string {
	return "resource:" + g.def.Name + ":list"
}

func (g *Gateway[T]) generationKey() string {
	return "resource:" + g.def.Name + ":gen"
}

func (g *Gateway[T]) singleKeyAt(gen int64, filter domain.Filter) string {
	return fmt.Sprintf("resource:%s:g%d:single:%s:%v", g.def.Name, gen, filter.Column, filter.Value)
}

func (g *Gateway[T]) singleKey(ctx context.Context, filter domain.Filter) string {
	return g.singleKeyAt(g.generation(ctx), filter)
}

func (g *Gateway[T]) generation(ctx context.Context) int64 {
	raw, err := g.cache.Get(ctx, g.generationKey())
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			g.log.Warn("cache read failed", zap.String("key", g.generationKey()), zap.Error(err))
		}
		return 0
	}
	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

func (g *Gateway[T]) cached(ctx context.Context, key string, dst any) bool {
	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			g.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		g.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (g *Gateway[T]) remember(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		g.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := g.cache.Set(ctx, key, raw, g.cacheTTL); err != nil {
		g.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate drops the list entry and, for record mutations, the single entry
// of filter before bumping the generation so singles cached under other keys expire.
func (g *Gateway[T]) invalidate(ctx context.Context, mutation bool, filters ...domain.Filter) {
	keys := []string{g.listKey()}
	if mutation {
		gen := g.generation(ctx)
		for _, f := range filters {
			keys = append(keys, g.singleKeyAt(gen, f))
		}
	}
	if err := g.cache.Delete(ctx, keys...); err != nil {
		g.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
	if mutation {
		if _, err := g.cache.Incr(ctx, g.generationKey()); err != nil {
			g.log.Warn("cache generation bump failed", zap.Error(err))
		}
	}
}
