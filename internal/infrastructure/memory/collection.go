package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backoffice/boilerplate/internal/domain/resource"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Collection is a document store for gateway resources. Records are kept as
// bson documents keyed like the mongo driver and decoded into T on read.
type Collection[T any] struct {
	mu      sync.RWMutex
	docs    map[string]bson.M
	order   []string
	unique  []string
	nowFunc func() time.Time
}

// NewCollection returns an empty collection enforcing def.Unique.
func NewCollection[T any](def resource.Definition) *Collection[T] {
	return &Collection[T]{
		docs:    make(map[string]bson.M),
		unique:  def.Unique,
		nowFunc: time.Now,
	}
}

var _ resource.Store[struct{}] = (*Collection[struct{}])(nil)

// Create inserts a new document built from fields.
func (c *Collection[T]) Create(ctx context.Context, fields resource.Fields) (*T, error) {
	_ = ctx

	now := c.nowFunc().UTC()
	doc := bson.M{}
	for k, v := range fields {
		doc[docKey(k)] = v
	}
	id := uuid.NewString()
	doc["_id"] = id
	doc["created_at"] = now
	doc["updated_at"] = now

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conflicts(doc, "") {
		return nil, resource.ErrConflict
	}
	c.docs[id] = doc
	c.order = append(c.order, id)
	return decode[T](doc)
}

// List returns every document in insertion order.
func (c *Collection[T]) List(ctx context.Context) ([]*T, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*T, 0, len(c.order))
	for _, id := range c.order {
		item, err := decode[T](c.docs[id])
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// FindOne returns the first document matching filter.
func (c *Collection[T]) FindOne(ctx context.Context, filter resource.Filter) (*T, error) {
	_ = ctx

	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.match(filter)
	if !ok {
		return nil, resource.ErrNotFound
	}
	return decode[T](c.docs[id])
}

// Update sets fields on the first document matching filter.
func (c *Collection[T]) Update(ctx context.Context, filter resource.Filter, fields resource.Fields) error {
	_ = ctx

	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.match(filter)
	if !ok {
		return resource.ErrNotFound
	}
	next := bson.M{}
	for k, v := range c.docs[id] {
		next[k] = v
	}
	for k, v := range fields {
		next[docKey(k)] = v
	}
	next["updated_at"] = c.nowFunc().UTC()
	if c.conflicts(next, id) {
		return resource.ErrConflict
	}
	c.docs[id] = next
	return nil
}

// Delete removes the first document matching filter.
func (c *Collection[T]) Delete(ctx context.Context, filter resource.Filter) error {
	_ = ctx

	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.match(filter)
	if !ok {
		return resource.ErrNotFound
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Collection[T]) match(filter resource.Filter) (string, bool) {
	key := docKey(filter.Column)
	for _, id := range c.order {
		if equal(c.docs[id][key], filter.Value) {
			return id, true
		}
	}
	return "", false
}

func (c *Collection[T]) conflicts(doc bson.M, self string) bool {
	for _, col := range c.unique {
		v, ok := doc[col]
		if !ok {
			continue
		}
		for id, other := range c.docs {
			if id != self && equal(other[col], v) {
				return true
			}
		}
	}
	return false
}

func docKey(column string) string {
	if column == resource.IDColumn {
		return "_id"
	}
	return column
}

func decode[T any](doc bson.M) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &out, nil
}

func equal(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	return a == b
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
