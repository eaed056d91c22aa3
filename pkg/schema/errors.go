package schema

import (
	"errors"
	"fmt"
)

// Violation kinds reported by the built-in types.
const (
	KindMissing   = "missing"
	KindType      = "type"
	KindMinLength = "min_length"
	KindMaxLength = "max_length"
	KindPattern   = "pattern"
	KindRange     = "range"
	KindEnum      = "enum"
)

// ValidationError is returned by Type.Validate.
type ValidationError struct {
	Kind   string // Machine-readable kind, used in error tags
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s (got %T)", e.Reason, e.Value)
}

func typeError(want string, value any) error {
	return &ValidationError{Kind: KindType, Reason: "expected " + want, Value: value}
}

// kindOf extracts the violation kind from a type error.
// Plain errors returned by Custom validators map to the custom type name.
func kindOf(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Kind != "" {
		return ve.Kind
	}
	return fallback
}
