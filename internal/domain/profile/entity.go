package profile

import (
	"time"

	"backoffice/boilerplate/internal/domain/resource"
)

// Profile is the example resource scaffolded with the boilerplate.
type Profile struct {
	ID        string    `json:"id" bson:"_id" db:"id"`
	Name      string    `json:"name" bson:"name" db:"name"`
	Email     string    `json:"email" bson:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at" db:"updated_at"`
}

// Definition exposes profiles through the resource gateway.
var Definition = resource.Definition{
	Name: "profiles",
	Filters: map[string]resource.Dimension{
		"id":    {Column: resource.IDColumn, Kind: resource.KindString},
		"email": {Column: "email", Kind: resource.KindString, Fold: true},
	},
	Writable: map[string]resource.Field{
		"name":  {Column: "name", Kind: resource.KindString, AddRules: "required,max=120", EditRules: "min=1,max=120"},
		"email": {Column: "email", Kind: resource.KindString, AddRules: "required,email", EditRules: "email", Fold: true},
	},
	Unique: []string{"email"},
}

// ResourceID returns the profile identifier.
func (p Profile) ResourceID() string { return p.ID }
