// Package validation wraps go-playground/validator and turns its errors into
// field-level messages suitable for API responses.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrFailed is matched by every *Error.
var ErrFailed = errors.New("the given data was invalid")

// Error carries field-level validation messages keyed by JSON field name.
type Error struct {
	Fields map[string][]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return fmt.Sprintf("%s: %s", ErrFailed, strings.Join(keys, ", "))
}

// Is makes errors.Is(err, ErrFailed) succeed.
func (e *Error) Is(target error) bool {
	return target == ErrFailed
}

// Add records a message for field.
func (e *Error) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Err returns e when it holds messages, nil otherwise.
func (e *Error) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validator validates request structs and single values.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator that reports fields by their json tag name.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s using its `validate` tags.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &Error{}
	for _, fe := range ve {
		out.Add(fe.Field(), message(fe.Field(), fe))
	}
	return out
}

// Var validates a single value against rules and records failures under name.
func (v *Validator) Var(into *Error, name string, value any, rules string) error {
	if rules == "" {
		return nil
	}
	err := v.v.Var(value, rules)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	for _, fe := range ve {
		into.Add(name, message(name, fe))
	}
	return nil
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s format is invalid.", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", field, fe.Param())
	case "len":
		return fmt.Sprintf("The %s must be %s characters.", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("The %s must be a number.", field)
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", strings.TrimSuffix(field, "_confirmation"))
	default:
		return fmt.Sprintf("The %s field failed the %s rule.", field, fe.Tag())
	}
}
