package schema

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var (
	_ ports.Validator = (*FieldsValidator)(nil)
	_ ports.Validator = (*StructValidator[struct{}])(nil)
	_ ports.Validator = (*JSONSchemaValidator)(nil)
)

func TestValidate_MissingAndType(t *testing.T) {
	s := Schema{
		"first_name": String(),
		"age":        Int(),
		"nickname":   Optional(String()),
	}

	got := Validate(s, map[string]any{"age": "old"})
	assert.Equal(t, []string{"age:type", "first_name:missing"}, flatten(got))

	assert.Empty(t, Validate(s, map[string]any{"first_name": "Ravi", "age": 30.0}))
	assert.Empty(t, Validate(nil, map[string]any{"x": 1}))
}

func TestFieldsValidator(t *testing.T) {
	v := Fields(Schema{"phone_number": Phone()})

	violations, err := v.Validate(context.Background(), map[string]any{"phone_number": "123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"phone_number:pattern"}, flatten(violations))

	_, err = Fields(nil).Validate(context.Background(), map[string]any{})
	assert.Error(t, err)
}

type vehicle struct {
	Brand string `json:"brand" validate:"required,min=2"`
	Model string `json:"model" validate:"required"`
	Year  int    `json:"year" validate:"omitempty,gte=1980,lte=2100"`
	Plate string `json:"number_plate,omitempty"`
}

func TestStructValidator(t *testing.T) {
	v := Struct[vehicle]()
	ctx := context.Background()

	violations, err := v.Validate(ctx, map[string]any{"brand": "H", "year": 1950.0})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"brand:min", "model:required", "year:gte"}, flatten(violations))

	violations, err = v.Validate(ctx, map[string]any{"brand": "Honda", "model": "City", "year": 2020.0, "confidence": 0.9})
	require.NoError(t, err)
	assert.Empty(t, violations)

	violations, err = v.Validate(ctx, map[string]any{"brand": "Honda", "model": "City", "year": "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{"year:type"}, flatten(violations))
}

func TestStructValidator_Normalize(t *testing.T) {
	v := Struct[vehicle]()
	var _ ports.Normalizer = v

	out, err := v.Normalize(map[string]any{"brand": "Honda", "model": "City", "year": 2020.0, "confidence": 0.9})
	require.NoError(t, err)
	assert.Equal(t, "Honda", out["brand"])
	assert.Equal(t, 2020, out["year"])
	assert.NotContains(t, out, "confidence")
	assert.NotContains(t, out, "number_plate")
}

func TestJSONSchemaValidator(t *testing.T) {
	v, err := JSONSchemaString(`{
		"type": "object",
		"required": ["preferred_date"],
		"properties": {
			"preferred_date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
			"start_hour": {"type": "integer", "minimum": 0, "maximum": 23}
		}
	}`)
	require.NoError(t, err)
	ctx := context.Background()

	violations, err := v.Validate(ctx, map[string]any{"start_hour": 30})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"preferred_date:required", "start_hour:number_lte"}, flatten(violations))

	violations, err = v.Validate(ctx, map[string]any{"preferred_date": "2025-01-16", "start_hour": 9})
	require.NoError(t, err)
	assert.Empty(t, violations)

	_, err = JSONSchemaString(`{"type": 12}`)
	assert.Error(t, err)
}

func TestSchemaSerialization(t *testing.T) {
	s := Schema{"first_name": String(), "phone": Phone(), "tags": Slice(String())}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_name":"string","phone":"phone","tags":"[string]"}`, string(data))

	var back Schema
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "phone", back["phone"].Name())

	var fromYAML struct {
		Fields Schema `yaml:"fields"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("fields:\n  email: email\n  nickname: string?\n"), &fromYAML))
	assert.Equal(t, "string?", fromYAML.Fields["nickname"].Name())

	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &back))
}

func flatten(vs []domain.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Field+":"+v.Kind)
	}
	return out
}
