package memory

import (
	"context"
	"testing"

	"backoffice/boilerplate/internal/domain/product"
	"backoffice/boilerplate/internal/domain/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[product.Product](product.Definition)

	created, err := c.Create(ctx, resource.Fields{"name": "Mug", "sku": "MUG-1", "price": 9.5, "quantity": int64(3)})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Mug", created.Name)
	assert.Equal(t, int64(3), created.Quantity)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := c.FindOne(ctx, resource.Filter{Column: resource.IDColumn, Value: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "MUG-1", got.SKU)

	require.NoError(t, c.Update(ctx, resource.Filter{Column: "sku", Value: "MUG-1"}, resource.Fields{"price": 12.0}))
	got, err = c.FindOne(ctx, resource.Filter{Column: "sku", Value: "MUG-1"})
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.Price)
	assert.Equal(t, "Mug", got.Name)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, resource.Filter{Column: resource.IDColumn, Value: created.ID}))
	_, err = c.FindOne(ctx, resource.Filter{Column: resource.IDColumn, Value: created.ID})
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, resource.Filter{Column: resource.IDColumn, Value: created.ID}), resource.ErrNotFound)
	assert.ErrorIs(t, c.Update(ctx, resource.Filter{Column: "sku", Value: "MUG-1"}, resource.Fields{"price": 1.0}), resource.ErrNotFound)
}

func TestCollection_UniqueColumns(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[product.Product](product.Definition)

	_, err := c.Create(ctx, resource.Fields{"name": "A", "sku": "S-1"})
	require.NoError(t, err)
	b, err := c.Create(ctx, resource.Fields{"name": "B", "sku": "S-2"})
	require.NoError(t, err)

	_, err = c.Create(ctx, resource.Fields{"name": "C", "sku": "S-1"})
	assert.ErrorIs(t, err, resource.ErrConflict)

	err = c.Update(ctx, resource.Filter{Column: resource.IDColumn, Value: b.ID}, resource.Fields{"sku": "S-1"})
	assert.ErrorIs(t, err, resource.ErrConflict)

	err = c.Update(ctx, resource.Filter{Column: resource.IDColumn, Value: b.ID}, resource.Fields{"sku": "S-2", "name": "B2"})
	assert.NoError(t, err)
}

func TestCollection_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[product.Product](product.Definition)
	for _, sku := range []string{"a", "b", "c"} {
		_, err := c.Create(ctx, resource.Fields{"name": sku, "sku": sku})
		require.NoError(t, err)
	}
	require.NoError(t, c.Delete(ctx, resource.Filter{Column: "sku", Value: "b"}))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].SKU)
	assert.Equal(t, "c", list[1].SKU)
}

func TestCollection_NumericFilterMatchesAcrossWidths(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[product.Product](product.Definition)
	_, err := c.Create(ctx, resource.Fields{"name": "A", "sku": "A", "quantity": int64(7)})
	require.NoError(t, err)

	got, err := c.FindOne(ctx, resource.Filter{Column: "quantity", Value: 7.0})
	require.NoError(t, err)
	assert.Equal(t, "A", got.SKU)
}
