package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	domain "backoffice/boilerplate/internal/domain/resource"
	"backoffice/boilerplate/internal/validation"
)

// decode keeps the writable fields of body, coerces them to their kinds and
// validates them. Fields absent on add are validated as zero values.
func (g *Gateway[T]) decode(body []byte, edit bool) (domain.Fields, *validation.Error, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil, domain.ErrEmptyBody
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		verr := &validation.Error{}
		verr.Add("body", "The request body must be a JSON object.")
		return nil, nil, verr
	}

	names := make([]string, 0, len(g.def.Writable))
	for name := range g.def.Writable {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := domain.Fields{}
	verr := &validation.Error{}
	for _, name := range names {
		field := g.def.Writable[name]
		msg, present := raw[name]
		rules := field.AddRules
		if edit {
			rules = field.EditRules
		}

		if !present {
			if edit {
				continue
			}
			if err := g.validate.Var(verr, name, zero(field.Kind), rules); err != nil {
				return nil, nil, err
			}
			continue
		}

		value, ok := coerce(msg, field)
		if !ok {
			verr.Add(name, fmt.Sprintf("The %s must be a %s.", name, field.Kind))
			fields[field.Column] = nil
			continue
		}
		if err := g.validate.Var(verr, name, value, rules); err != nil {
			return nil, nil, err
		}
		fields[field.Column] = value
	}

	if len(fields) == 0 {
		return nil, nil, domain.ErrEmptyBody
	}
	return fields, verr, nil
}

func coerce(msg json.RawMessage, field domain.Field) (any, bool) {
	switch field.Kind {
	case domain.KindInt:
		var v int64
		if err := json.Unmarshal(msg, &v); err != nil || isNull(msg) {
			return nil, false
		}
		return v, true
	case domain.KindFloat:
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil || isNull(msg) {
			return nil, false
		}
		return v, true
	case domain.KindBool:
		var v bool
		if err := json.Unmarshal(msg, &v); err != nil || isNull(msg) {
			return nil, false
		}
		return v, true
	default:
		var v string
		if err := json.Unmarshal(msg, &v); err != nil || isNull(msg) {
			return nil, false
		}
		v = strings.TrimSpace(v)
		if field.Fold {
			v = strings.ToLower(v)
		}
		return v, true
	}
}

func isNull(msg json.RawMessage) bool {
	return string(bytes.TrimSpace(msg)) == "null"
}

func zero(k domain.Kind) any {
	switch k {
	case domain.KindInt:
		return int64(0)
	case domain.KindFloat:
		return float64(0)
	case domain.KindBool:
		return false
	default:
		return ""
	}
}
