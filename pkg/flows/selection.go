package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/ports"
)

// DefaultSelectionError is sent when no specific selection error was recorded.
const DefaultSelectionError = "Invalid selection. Please try again."

// SelectionConfig configures a numbered-list selector.
type SelectionConfig struct {
	// Options holds the list the user picks from.
	Options string
	// Selected receives the chosen option.
	Selected string
	// Error receives a user-facing message when the reply is not a valid choice.
	Error string
	// LabelKey, when set, also accepts an option whose label matches the
	// reply case-insensitively.
	LabelKey string
}

type numberedSelector struct {
	options  fieldpath.Path
	selected fieldpath.Path
	errPath  fieldpath.Path
	labelKey string
}

// NewSelector builds a Selector that resolves a 1-based numeric reply
// against the options list. On success the options are cleared and the error
// path removed.
func NewSelector(cfg SelectionConfig) (ports.Selector, error) {
	s := &numberedSelector{labelKey: cfg.LabelKey}
	for _, p := range []struct {
		raw string
		dst *fieldpath.Path
	}{{cfg.Options, &s.options}, {cfg.Selected, &s.selected}, {cfg.Error, &s.errPath}} {
		path, err := fieldpath.Parse(p.raw)
		if err != nil {
			return nil, err
		}
		*p.dst = path
	}
	return s, nil
}

func (s *numberedSelector) Select(_ context.Context, st *domain.State) (bool, error) {
	options := asList(st.Get(s.options))
	if len(options) == 0 {
		st.Set(s.errPath, "There is nothing to choose from right now.")
		return false, nil
	}

	chosen, ok := s.match(options, st.UserMessage)
	if !ok {
		st.Set(s.errPath, fmt.Sprintf("Please reply with a number from 1 to %d", len(options)))
		return false, nil
	}

	st.Set(s.selected, chosen)
	st.Set(s.options, []any{})
	fieldpath.Delete(st.Slots, s.errPath)
	return true, nil
}

func (s *numberedSelector) match(options []any, reply string) (any, bool) {
	reply = strings.TrimSpace(reply)
	if idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(reply, "#"), ".")); err == nil {
		if idx >= 1 && idx <= len(options) {
			return options[idx-1], true
		}
		return nil, false
	}
	if s.labelKey == "" || reply == "" {
		return nil, false
	}
	for _, opt := range options {
		rec, ok := opt.(map[string]any)
		if !ok {
			continue
		}
		if label, ok := rec[s.labelKey].(string); ok && strings.EqualFold(label, reply) {
			return opt, true
		}
	}
	return nil, false
}

// ErrorMessage renders the text stored at errPath, or fallback when none is set.
func ErrorMessage(errPath, fallback string) ports.MessageBuilder {
	path := fieldpath.MustParse(errPath)
	if fallback == "" {
		fallback = DefaultSelectionError
	}
	return ports.MessageBuilderFunc(func(st *domain.State) (string, error) {
		if msg, ok := st.Get(path).(string); ok && msg != "" {
			return msg, nil
		}
		return fallback, nil
	})
}

func asList(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []map[string]any:
		out := make([]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out
	}
	return nil
}
