// Package resource declares the storage contract shared by every resource
// served through the generic gateway.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound indicates the filter matched no record.
	ErrNotFound = errors.New("entry does not exist in the record")
	// ErrConflict signals a unique constraint breach.
	ErrConflict = errors.New("entry conflicts with an existing record")
	// ErrEmptyBody is returned when a write carries no writable fields.
	ErrEmptyBody = errors.New("request body must contain at least one field")
	// ErrInvalidFilter is returned for filter keys outside the allow-list or unparsable values.
	ErrInvalidFilter = errors.New("filter is not permitted")
	// ErrRateLimited is returned when the caller exhausted the write quota.
	ErrRateLimited = errors.New("too many requests, please try again later")
	// ErrLocked is returned when another writer holds the record lease.
	ErrLocked = errors.New("entry is being modified, please retry")
)

// IDColumn is the canonical identifier column shared by all resources.
const IDColumn = "id"

// Fields holds storage-ready column values.
type Fields map[string]any

// Filter selects a single record by one permitted column.
type Filter struct {
	Column string
	Value  any
}

// Store is the persistence contract a resource must satisfy.
// FindOne returns ErrNotFound when nothing matches; Update and Delete do the same.
type Store[T any] interface {
	Create(ctx context.Context, fields Fields) (*T, error)
	List(ctx context.Context) ([]*T, error)
	FindOne(ctx context.Context, filter Filter) (*T, error)
	Update(ctx context.Context, filter Filter, fields Fields) error
	Delete(ctx context.Context, filter Filter) error
}

// Kind is the value type of a filter dimension or writable field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "string"
	}
}

// Parse converts a raw route value into the Go type of k.
func (k Kind) Parse(raw string) (any, error) {
	switch k {
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(raw, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	default:
		return raw, nil
	}
}

// Dimension is a permitted filter key.
type Dimension struct {
	Column string
	Kind   Kind
	// Fold lower-cases string values before matching.
	Fold bool
}

// Field describes a writable attribute and its validation rules.
// Rules use go-playground/validator tag syntax.
type Field struct {
	Column    string
	Kind      Kind
	AddRules  string
	EditRules string
	Fold      bool
}

// Definition describes a resource exposed through the gateway.
type Definition struct {
	Name     string
	Filters  map[string]Dimension
	Writable map[string]Field
	// Unique lists columns that must not repeat across records.
	Unique []string
}

// ParseFilter resolves a route (field, value) pair against the allow-list.
func (d Definition) ParseFilter(field, raw string) (Filter, error) {
	dim, ok := d.Filters[field]
	if !ok {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, field)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Filter{}, fmt.Errorf("%w: empty value for %q", ErrInvalidFilter, field)
	}
	if dim.Fold {
		raw = strings.ToLower(raw)
	}
	value, err := dim.Kind.Parse(raw)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %q must be %s", ErrInvalidFilter, field, dim.Kind)
	}
	return Filter{Column: dim.Column, Value: value}, nil
}
