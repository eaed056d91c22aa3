package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
)

// Node is a single named processing step.
type Node interface {
	Name() string
	// Run mutates st. A non-nil error aborts the current invocation.
	Run(ctx context.Context, st *domain.State) error
}

// Func adapts a function into a Node.
func Func(name string, fn func(ctx context.Context, st *domain.State) error) Node {
	return funcNode{name: name, fn: fn}
}

type funcNode struct {
	name string
	fn   func(ctx context.Context, st *domain.State) error
}

func (n funcNode) Name() string { return n.name }

func (n funcNode) Run(ctx context.Context, st *domain.State) error { return n.fn(ctx, st) }

// FailurePolicy selects what a node does after recording a failure tag.
type FailurePolicy string

const (
	// FailLog keeps the data and continues.
	FailLog FailurePolicy = "log"
	// FailClear writes nil to the target path and continues.
	FailClear FailurePolicy = "clear"
	// FailRaise returns a *NodeError and aborts the invocation.
	FailRaise FailurePolicy = "raise"
)

func (p FailurePolicy) valid() bool {
	switch p {
	case FailLog, FailClear, FailRaise:
		return true
	}
	return false
}

var (
	// ErrNoValue is wrapped when an extractor or parser yields nothing usable.
	ErrNoValue = errors.New("no value")
	// ErrSourceEmpty is wrapped by Transform when the source path is absent.
	ErrSourceEmpty = errors.New("source is empty")
	// ErrInvalidConfig is returned by constructors for unusable configurations.
	ErrInvalidConfig = errors.New("invalid node config")
)

// DefaultExtractionTimeout bounds one extraction attempt when no timeout is configured.
const DefaultExtractionTimeout = 90 * time.Second

// NodeError is returned by nodes configured to raise.
type NodeError struct {
	Node string
	Tag  string
	Err  error
}

func (e *NodeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("node %s: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("node %s: %s: %v", e.Node, e.Tag, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Option configures the shared parts of a node.
type Option func(*base)

// WithLogger sets the node logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

type base struct {
	name   string
	logger *slog.Logger
}

func newBase(name string, opts []Option) base {
	b := base{name: name, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With("node", name)
	return b
}

func (b base) Name() string { return b.name }

func (b base) fail(tag string, err error) error {
	return &NodeError{Node: b.name, Tag: tag, Err: err}
}

func parsePath(field, raw string) (fieldpath.Path, error) {
	p, err := fieldpath.Parse(raw)
	if err != nil {
		return fieldpath.Path{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
	}
	return p, nil
}

func parseOptionalPath(field, raw string) (fieldpath.Path, error) {
	if raw == "" {
		return fieldpath.Path{}, nil
	}
	return parsePath(field, raw)
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

// priorHistory returns the history without the trailing entry for the
// current user message.
func priorHistory(st *domain.State) []domain.Turn {
	h := st.History
	if n := len(h); n > 0 && h[n-1].Role == domain.RoleUser && h[n-1].Content == st.UserMessage {
		return h[:n-1]
	}
	return h
}

// copyRecord returns a shallow copy of m, never nil.
func copyRecord(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// pick resolves the value an extraction yields for leaf, or its whole record.
func pick(ex domain.Extraction, leaf string, record bool) any {
	if record {
		if rec := ex.Record(); rec != nil {
			return rec
		}
		return nil
	}
	return ex.ValueFor(leaf)
}
