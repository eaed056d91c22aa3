package schema

import (
	"context"
	"errors"
	"sort"

	"github.com/aretw0/slotflow/pkg/domain"
)

// Schema is a map of field names to their expected types.
// Example: {"first_name": String(MinLength(2)), "tags": Slice(String())}
type Schema map[string]Type

// Validate checks data against the schema and returns one violation per
// failing field, sorted by field name. Missing non-optional fields are
// reported with KindMissing.
func Validate(schema Schema, data map[string]any) []domain.Violation {
	if len(schema) == 0 {
		return nil
	}

	fields := make([]string, 0, len(schema))
	for name := range schema {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var out []domain.Violation
	for _, name := range fields {
		typ := schema[name]
		value, exists := data[name]
		if !exists || value == nil {
			if _, optional := typ.(*OptionalType); optional {
				continue
			}
			out = append(out, domain.Violation{Field: name, Kind: KindMissing, Message: "required"})
			continue
		}
		if err := typ.Validate(value); err != nil {
			out = append(out, domain.Violation{Field: name, Kind: kindOf(err, KindType), Message: err.Error()})
		}
	}
	return out
}

// FieldsValidator adapts a Schema to ports.Validator.
type FieldsValidator struct {
	schema Schema
}

// Fields returns a validator for s.
func Fields(s Schema) *FieldsValidator {
	return &FieldsValidator{schema: s}
}

func (v *FieldsValidator) Validate(_ context.Context, record map[string]any) ([]domain.Violation, error) {
	if v.schema == nil {
		return nil, errors.New("schema: nil schema")
	}
	return Validate(v.schema, record), nil
}
