package schema

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var decodeFieldRe = regexp.MustCompile(`'([^']*)'`)

// StructValidator decodes a record into T and validates its `validate` tags.
// Field names in violations follow the `json` tag of T.
type StructValidator[T any] struct {
	validate *validator.Validate
}

// Struct returns a validator for the tagged struct type T.
func Struct[T any]() *StructValidator[T] {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &StructValidator[T]{validate: v}
}

// Decode converts a record to T without validating it.
func (s *StructValidator[T]) Decode(record map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return out, err
	}
	err = dec.Decode(record)
	return out, err
}

// Normalize decodes record into T and encodes it back, applying T's field
// types and dropping keys T does not declare.
func (s *StructValidator[T]) Normalize(record map[string]any) (map[string]any, error) {
	value, err := s.Decode(record)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(value); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *StructValidator[T]) Validate(ctx context.Context, record map[string]any) ([]domain.Violation, error) {
	value, err := s.Decode(record)
	if err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			return decodeViolations(merr), nil
		}
		return nil, fmt.Errorf("decode record: %w", err)
	}

	err = s.validate.StructCtx(ctx, value)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	out := make([]domain.Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domain.Violation{
			Field:   fieldName(fe),
			Kind:    fe.Tag(),
			Message: fe.Error(),
		})
	}
	return out, nil
}

// fieldName strips the struct name from the namespace, keeping nested paths.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func decodeViolations(merr *mapstructure.Error) []domain.Violation {
	out := make([]domain.Violation, 0, len(merr.Errors))
	for _, msg := range merr.Errors {
		field := "__root__"
		if m := decodeFieldRe.FindStringSubmatch(msg); m != nil && m[1] != "" {
			field = m[1]
		}
		out = append(out, domain.Violation{Field: field, Kind: KindType, Message: msg})
	}
	return out
}
