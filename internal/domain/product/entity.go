package product

import (
	"time"

	"backoffice/boilerplate/internal/domain/resource"
)

// Product captures the state of an individual product.
type Product struct {
	ID          string    `json:"id" bson:"_id" db:"id"`
	Name        string    `json:"name" bson:"name" db:"name"`
	Description string    `json:"description" bson:"description" db:"description"`
	SKU         string    `json:"sku" bson:"sku" db:"sku"`
	Price       float64   `json:"price" bson:"price" db:"price"`
	Quantity    int64     `json:"quantity" bson:"quantity" db:"quantity"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at" db:"updated_at"`
}

// Definition exposes products through the resource gateway.
var Definition = resource.Definition{
	Name: "products",
	Filters: map[string]resource.Dimension{
		"id":  {Column: resource.IDColumn, Kind: resource.KindString},
		"sku": {Column: "sku", Kind: resource.KindString},
	},
	Writable: map[string]resource.Field{
		"name":        {Column: "name", Kind: resource.KindString, AddRules: "required,max=200", EditRules: "min=1,max=200"},
		"description": {Column: "description", Kind: resource.KindString, AddRules: "max=2000", EditRules: "max=2000"},
		"sku":         {Column: "sku", Kind: resource.KindString, AddRules: "required,max=64", EditRules: "min=1,max=64"},
		"price":       {Column: "price", Kind: resource.KindFloat, AddRules: "gte=0", EditRules: "gte=0"},
		"quantity":    {Column: "quantity", Kind: resource.KindInt, AddRules: "gte=0", EditRules: "gte=0"},
	},
	Unique: []string{"sku"},
}

// ResourceID returns the product identifier.
func (p Product) ResourceID() string { return p.ID }
