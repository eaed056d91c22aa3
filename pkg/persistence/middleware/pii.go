package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Mask replaces every masked value.
const Mask = "***"

// DefaultPIIPatterns match the slot keys the reference flows collect.
var DefaultPIIPatterns = []string{`(?i)phone`, `(?i)email`, `(?i)^(first|last)_name$`}

// PIIConfig selects what the PII middleware masks.
type PIIConfig struct {
	// KeyPatterns mask slot values whose key matches, at any depth.
	KeyPatterns []string
	// HistoryPatterns mask matching substrings of history entries and the
	// last user message.
	HistoryPatterns []string
}

type piiMiddleware struct {
	next    ports.StateStore
	keys    []*regexp.Regexp
	history []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks personal data before it
// reaches the underlying store. The caller's state is never modified.
func NewPIIMiddleware(cfg PIIConfig) (Middleware, error) {
	keys, err := compileAll(cfg.KeyPatterns)
	if err != nil {
		return nil, err
	}
	history, err := compileAll(cfg.HistoryPatterns)
	if err != nil {
		return nil, err
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, keys: keys, history: history}
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (m *piiMiddleware) Save(ctx context.Context, conversationID string, state *domain.State) error {
	masked := state.Clone()
	maskValue(masked.Slots, m.keys)
	if len(m.history) > 0 {
		for i := range masked.History {
			masked.History[i].Content = maskText(masked.History[i].Content, m.history)
		}
		masked.UserMessage = maskText(masked.UserMessage, m.history)
		masked.Response = maskText(masked.Response, m.history)
	}
	return m.next.Save(ctx, conversationID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, conversationID string) (*domain.State, error) {
	return m.next.Load(ctx, conversationID)
}

func (m *piiMiddleware) Delete(ctx context.Context, conversationID string) error {
	return m.next.Delete(ctx, conversationID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskValue(v any, patterns []*regexp.Regexp) {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if matchAny(k, patterns) && inner != nil {
				t[k] = Mask
				continue
			}
			maskValue(inner, patterns)
		}
	case []any:
		for _, inner := range t {
			maskValue(inner, patterns)
		}
	}
}

func matchAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func maskText(s string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
