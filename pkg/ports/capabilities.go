package ports

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
)

// Extractor pulls a value out of the current message, given the prior history.
type Extractor interface {
	Extract(ctx context.Context, history []domain.Turn, message string) (domain.Extraction, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, history []domain.Turn, message string) (domain.Extraction, error)

func (f ExtractorFunc) Extract(ctx context.Context, history []domain.Turn, message string) (domain.Extraction, error) {
	return f(ctx, history, message)
}

// Fallback is a cheap deterministic matcher. An empty Extraction means no match.
type Fallback interface {
	Match(message string) domain.Extraction
}

// FallbackFunc adapts a function to Fallback.
type FallbackFunc func(message string) domain.Extraction

func (f FallbackFunc) Match(message string) domain.Extraction { return f(message) }

// FallbackExtractor lets a Fallback serve where an Extractor is expected,
// e.g. in a retroactive scan. History is ignored.
func FallbackExtractor(f Fallback) Extractor {
	return ExtractorFunc(func(ctx context.Context, _ []domain.Turn, message string) (domain.Extraction, error) {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}
		return f.Match(message), nil
	})
}

// Validator checks a record. Violations are expected outcomes; a non-nil
// error means the validator itself failed.
//
// A Validator may also implement Normalizer to return the coerced record
// that is written back on success.
type Validator interface {
	Validate(ctx context.Context, record map[string]any) ([]domain.Violation, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, record map[string]any) ([]domain.Violation, error)

func (f ValidatorFunc) Validate(ctx context.Context, record map[string]any) ([]domain.Violation, error) {
	return f(ctx, record)
}

// Normalizer returns the normalized form of a valid record.
type Normalizer interface {
	Normalize(record map[string]any) (map[string]any, error)
}

// RequestBuilder derives an external request from the state.
type RequestBuilder interface {
	BuildRequest(st *domain.State) (domain.Request, error)
}

// RequestBuilderFunc adapts a function to RequestBuilder.
type RequestBuilderFunc func(st *domain.State) (domain.Request, error)

func (f RequestBuilderFunc) BuildRequest(st *domain.State) (domain.Request, error) { return f(st) }

// ResponseParser turns a successful response into the value written to the state.
type ResponseParser interface {
	ParseResponse(resp *domain.Response) (any, error)
}

// ResponseParserFunc adapts a function to ResponseParser.
type ResponseParserFunc func(resp *domain.Response) (any, error)

func (f ResponseParserFunc) ParseResponse(resp *domain.Response) (any, error) { return f(resp) }

// MessageBuilder renders the outbound text for the state.
type MessageBuilder interface {
	BuildMessage(st *domain.State) (string, error)
}

// MessageBuilderFunc adapts a function to MessageBuilder.
type MessageBuilderFunc func(st *domain.State) (string, error)

func (f MessageBuilderFunc) BuildMessage(st *domain.State) (string, error) { return f(st) }

// Transformer derives a target value from a source value.
type Transformer interface {
	Transform(value any, st *domain.State) (any, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(value any, st *domain.State) (any, error)

func (f TransformerFunc) Transform(value any, st *domain.State) (any, error) { return f(value, st) }

// Predicate evaluates a boolean over the state.
type Predicate interface {
	Eval(st *domain.State) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(st *domain.State) (bool, error)

func (f PredicateFunc) Eval(st *domain.State) (bool, error) { return f(st) }

// Selector handles the reply to a paused group. It returns true when the
// reply resolved the step.
type Selector interface {
	Select(ctx context.Context, st *domain.State) (bool, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, st *domain.State) (bool, error)

func (f SelectorFunc) Select(ctx context.Context, st *domain.State) (bool, error) { return f(ctx, st) }

// MergeFunc combines an existing record with an incoming one.
// The record arguments are copies and may be mutated.
type MergeFunc func(existing, incoming map[string]any, existingConfidence, incomingConfidence float64) (map[string]any, error)
