// Package schema validates extracted field records.
//
// Three validators are provided, all implementing ports.Validator and all
// reporting failures as domain.Violation{Field, Kind}:
//
//   - Fields: a lightweight typed schema built in Go or parsed from type strings.
//   - Struct: decodes the record into a tagged Go struct and runs go-playground/validator.
//   - JSONSchema: validates the record against a JSON Schema document.
//
// Basic usage:
//
//	name := schema.Fields(schema.Schema{
//	    "first_name": schema.String(schema.MinLength(2), schema.MaxLength(50)),
//	    "last_name":  schema.Optional(schema.String()),
//	})
//
//	violations, err := name.Validate(ctx, map[string]any{"first_name": "R"})
//	// violations: [{Field: "first_name", Kind: "min_length"}]
//
// Schemas can be parsed from type strings, which is how they are loaded from
// YAML or JSON configuration:
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "phone_number": "phone",
//	    "tags":         "[string]",
//	    "nickname":     "string?",
//	})
package schema
