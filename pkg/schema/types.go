package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// Type validates a single field value.
type Type interface {
	Name() string
	Validate(value any) error
}

// Constraint refines a base type.
type Constraint func(value any) error

// StringType accepts strings.
type StringType struct {
	constraints []Constraint
}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return typeError("string", value)
	}
	return check(t.constraints, s)
}

// IntType accepts integers, including whole float64 values from JSON.
type IntType struct {
	constraints []Constraint
}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
	case float64:
		if v != float64(int64(v)) {
			return &ValidationError{Kind: KindType, Reason: "expected int, got float (not a whole number)", Value: value}
		}
	default:
		return typeError("int", value)
	}
	return check(t.constraints, value)
}

// FloatType accepts any number.
type FloatType struct {
	constraints []Constraint
}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
	default:
		return typeError("float", value)
	}
	return check(t.constraints, value)
}

// BoolType accepts booleans.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return typeError("bool", value)
	}
	return nil
}

// SliceType accepts slices whose elements all satisfy elemType.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return typeError("slice", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// OptionalType lets a field be absent or nil.
type OptionalType struct {
	inner Type
}

func (t *OptionalType) Name() string { return t.inner.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

// CustomType delegates to a user function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// String returns a string type with optional constraints.
func String(constraints ...Constraint) Type { return &StringType{constraints: constraints} }

// Int returns an integer type with optional constraints.
func Int(constraints ...Constraint) Type { return &IntType{constraints: constraints} }

// Float returns a numeric type with optional constraints.
func Float(constraints ...Constraint) Type { return &FloatType{constraints: constraints} }

// Bool returns a boolean type.
func Bool() Type { return &BoolType{} }

// Slice returns a slice type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Optional wraps a type so absence is not a violation.
func Optional(inner Type) Type {
	return &OptionalType{inner: inner}
}

// Custom creates a named type from a function. Plain errors are reported with
// the type name as their kind.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: func(v any) error {
		if err := validate(v); err != nil {
			return &ValidationError{Kind: kindOf(err, name), Reason: err.Error(), Value: v}
		}
		return nil
	}}
}

// MinLength requires at least n characters.
func MinLength(n int) Constraint {
	return func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) < n {
			return &ValidationError{Kind: KindMinLength, Reason: fmt.Sprintf("must be at least %d characters", n)}
		}
		return nil
	}
}

// MaxLength allows at most n characters.
func MaxLength(n int) Constraint {
	return func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > n {
			return &ValidationError{Kind: KindMaxLength, Reason: fmt.Sprintf("must be at most %d characters", n)}
		}
		return nil
	}
}

// Pattern requires the string to match re.
func Pattern(re *regexp.Regexp) Constraint {
	return func(v any) error {
		if s, ok := v.(string); ok && !re.MatchString(s) {
			return &ValidationError{Kind: KindPattern, Reason: "does not match " + re.String()}
		}
		return nil
	}
}

// Range bounds a number, inclusive.
func Range(lo, hi float64) Constraint {
	return func(v any) error {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return typeError("number", v)
		}
		if f < lo || f > hi {
			return &ValidationError{Kind: KindRange, Reason: fmt.Sprintf("must be between %v and %v", lo, hi)}
		}
		return nil
	}
}

// OneOf restricts a string to the given values.
func OneOf(values ...string) Constraint {
	return func(v any) error {
		if s, ok := v.(string); ok && !slices.Contains(values, s) {
			return &ValidationError{Kind: KindEnum, Reason: fmt.Sprintf("must be one of %v", values)}
		}
		return nil
	}
}

var (
	phoneRe = regexp.MustCompile(`^[6-9]\d{9}$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

type namedType struct {
	Type
	name string
}

func (t *namedType) Name() string { return t.name }

// Phone is a ten-digit Indian mobile number.
func Phone() Type { return &namedType{Type: String(Pattern(phoneRe)), name: "phone"} }

// Email is a plain address.
func Email() Type { return &namedType{Type: String(Pattern(emailRe)), name: "email"} }

func check(constraints []Constraint, v any) error {
	for _, c := range constraints {
		if err := c(v); err != nil {
			return err
		}
	}
	return nil
}

// ParseType parses a type string: string, int, float, bool, phone, email,
// [elem] for slices and a trailing ? for optional fields.
func ParseType(typeStr string) (Type, error) {
	if n := len(typeStr); n > 1 && typeStr[n-1] == '?' {
		inner, err := ParseType(typeStr[:n-1])
		if err != nil {
			return nil, err
		}
		return Optional(inner), nil
	}

	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "phone":
		return Phone(), nil
	case "email":
		return Email(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of type strings into a Schema.
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
