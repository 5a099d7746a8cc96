package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/boilerplate/internal/domain/resource"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection stores gateway resources in the collection named after the resource.
type Collection[T any] struct {
	col     *mongo.Collection
	unique  []string
	nowFunc func() time.Time
}

// NewCollection binds def to db.
func NewCollection[T any](db *mongo.Database, def resource.Definition) *Collection[T] {
	return &Collection[T]{
		col:     db.Collection(def.Name),
		unique:  def.Unique,
		nowFunc: time.Now,
	}
}

var _ resource.Store[struct{}] = (*Collection[struct{}])(nil)

// EnsureIndexes creates a unique index per unique column.
func (c *Collection[T]) EnsureIndexes(ctx context.Context) error {
	if len(c.unique) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(c.unique))
	for _, col := range c.unique {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: col, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	if _, err := c.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("%s indexes: %w", c.col.Name(), err)
	}
	return nil
}

// Create inserts a document built from fields and returns it.
func (c *Collection[T]) Create(ctx context.Context, fields resource.Fields) (*T, error) {
	now := c.nowFunc().UTC()
	doc := bson.M{}
	for k, v := range fields {
		doc[field(k)] = v
	}
	id := uuid.NewString()
	doc["_id"] = id
	doc["created_at"] = now
	doc["updated_at"] = now

	if _, err := c.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, resource.ErrConflict
		}
		return nil, fmt.Errorf("insert %s: %w", c.col.Name(), err)
	}
	return c.FindOne(ctx, resource.Filter{Column: resource.IDColumn, Value: id})
}

// List returns every document oldest first.
func (c *Collection[T]) List(ctx context.Context) ([]*T, error) {
	cur, err := c.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.col.Name(), err)
	}
	defer cur.Close(ctx)

	out := []*T{}
	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.col.Name(), err)
		}
		out = append(out, &item)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.col.Name(), err)
	}
	return out, nil
}

// FindOne returns the first document matching filter.
func (c *Collection[T]) FindOne(ctx context.Context, filter resource.Filter) (*T, error) {
	var item T
	if err := c.col.FindOne(ctx, query(filter)).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, resource.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", c.col.Name(), err)
	}
	return &item, nil
}

// Update sets fields on the first matching document.
func (c *Collection[T]) Update(ctx context.Context, filter resource.Filter, fields resource.Fields) error {
	set := bson.M{"updated_at": c.nowFunc().UTC()}
	for k, v := range fields {
		set[field(k)] = v
	}
	res, err := c.col.UpdateOne(ctx, query(filter), bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return resource.ErrConflict
		}
		return fmt.Errorf("update %s: %w", c.col.Name(), err)
	}
	if res.MatchedCount == 0 {
		return resource.ErrNotFound
	}
	return nil
}

// Delete removes the first matching document.
func (c *Collection[T]) Delete(ctx context.Context, filter resource.Filter) error {
	res, err := c.col.DeleteOne(ctx, query(filter))
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func query(filter resource.Filter) bson.M {
	return bson.M{field(filter.Column): filter.Value}
}

func field(column string) string {
	if column == resource.IDColumn {
		return "_id"
	}
	return column
}
