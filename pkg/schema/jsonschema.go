package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/xeipuuv/gojsonschema"
)

// JSONSchemaValidator validates records against a compiled JSON Schema.
type JSONSchemaValidator struct {
	schema *gojsonschema.Schema
}

// JSONSchema compiles a schema document given as a Go value (usually a map
// decoded from YAML or JSON).
func JSONSchema(document any) (*JSONSchemaValidator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("compile json schema: %w", err)
	}
	return &JSONSchemaValidator{schema: s}, nil
}

// JSONSchemaString compiles a schema document from its JSON text.
func JSONSchemaString(document string) (*JSONSchemaValidator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(document))
	if err != nil {
		return nil, fmt.Errorf("compile json schema: %w", err)
	}
	return &JSONSchemaValidator{schema: s}, nil
}

func (v *JSONSchemaValidator) Validate(_ context.Context, record map[string]any) ([]domain.Violation, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}

	out := make([]domain.Violation, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		// Required errors are reported on the parent object.
		if prop, ok := desc.Details()["property"].(string); ok && desc.Type() == "required" {
			if field == "(root)" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
		field = strings.TrimPrefix(field, "(root).")
		out = append(out, domain.Violation{
			Field:   field,
			Kind:    desc.Type(),
			Message: desc.Description(),
		})
	}
	return out, nil
}
