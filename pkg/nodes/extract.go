package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Priority decides which extraction method is tried first.
type Priority int

const (
	PrimaryFirst Priority = iota
	FallbackFirst
)

func (p Priority) String() string {
	if p == FallbackFirst {
		return "fallback-first"
	}
	return "primary-first"
}

// PriorityForMode maps an operating mode to its default priority.
// The "reflex" mode is the cheap one and prefers the deterministic fallback.
func PriorityForMode(mode string) Priority {
	if mode == "reflex" {
		return FallbackFirst
	}
	return PrimaryFirst
}

// Extraction methods recorded in metadata.
const (
	MethodModel = "model"
	MethodRegex = "regex"
)

const (
	DefaultPrimaryConfidence  = 1.0
	DefaultFallbackConfidence = 0.7
)

// ExtractConfig configures an Extract node.
type ExtractConfig struct {
	// Field is the dotted path the extracted value is written to.
	Field    string
	Primary  ports.Extractor
	Fallback ports.Fallback
	Priority Priority
	// Timeout bounds each method attempt. Zero means DefaultExtractionTimeout.
	Timeout time.Duration
	// MetadataPath, when set, receives {method, confidence}.
	MetadataPath string
	// Record writes the extractor's whole field record instead of the
	// value for the last segment of Field.
	Record bool
	// Confidences applied when a method reports none.
	PrimaryConfidence  float64
	FallbackConfidence float64
}

// Extract pulls one field out of the current message.
type Extract struct {
	base
	field    fieldpath.Path
	meta     fieldpath.Path
	primary  ports.Extractor
	fallback ports.Fallback
	priority Priority
	timeout  time.Duration
	primConf float64
	fbConf   float64
	record   bool
}

// NewExtract validates cfg and builds the node.
func NewExtract(name string, cfg ExtractConfig, opts ...Option) (*Extract, error) {
	field, err := parsePath("field", cfg.Field)
	if err != nil {
		return nil, err
	}
	meta, err := parseOptionalPath("metadata path", cfg.MetadataPath)
	if err != nil {
		return nil, err
	}
	if cfg.Primary == nil && cfg.Fallback == nil {
		return nil, configError("extract %s: needs a primary extractor or a fallback", name)
	}
	n := &Extract{
		base:     newBase(name, opts),
		field:    field,
		meta:     meta,
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		priority: cfg.Priority,
		timeout:  cfg.Timeout,
		primConf: cfg.PrimaryConfidence,
		fbConf:   cfg.FallbackConfidence,
		record:   cfg.Record,
	}
	if n.primConf <= 0 {
		n.primConf = DefaultPrimaryConfidence
	}
	if n.fbConf <= 0 {
		n.fbConf = DefaultFallbackConfidence
	}
	return n, nil
}

type method struct {
	name string
	run  func(ctx context.Context, history []domain.Turn, message string) (domain.Extraction, error)
	conf float64
}

func (n *Extract) methods() []method {
	var primary, fallback *method
	if n.primary != nil {
		primary = &method{name: MethodModel, conf: n.primConf, run: n.primary.Extract}
	}
	if n.fallback != nil {
		fallback = &method{name: MethodRegex, conf: n.fbConf, run: func(_ context.Context, _ []domain.Turn, message string) (domain.Extraction, error) {
			return n.fallback.Match(message), nil
		}}
	}

	order := []*method{primary, fallback}
	if n.priority == FallbackFirst {
		order = []*method{fallback, primary}
	}
	out := make([]method, 0, 2)
	for _, m := range order {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// Run tries each method in priority order and stops at the first value.
func (n *Extract) Run(ctx context.Context, st *domain.State) error {
	log := n.logger.With("conversation_id", st.ConversationID, "field", n.field.String())
	history := append([]domain.Turn(nil), priorHistory(st)...)
	message := st.UserMessage

	for _, m := range n.methods() {
		ex, err := boundedExtract(ctx, n.timeout, func(ctx context.Context) (domain.Extraction, error) {
			return m.run(ctx, history, message)
		})
		if err == nil {
			if v := pick(ex, n.field.Leaf(), n.record); v != nil {
				conf := ex.Confidence
				if conf <= 0 {
					conf = m.conf
				}
				st.Set(n.field, v)
				if !n.meta.IsZero() {
					st.Set(n.meta, map[string]any{"method": m.name, "confidence": conf})
				}
				log.Info("field extracted", "method", m.name, "confidence", conf)
				return nil
			}
			err = ErrNoValue
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("extraction attempt timed out", "method", m.name, "timeout", n.timeout)
		} else {
			log.Debug("extraction attempt failed", "method", m.name, "error", err)
		}
	}

	st.AddError(domain.TagExtractionFailed(n.field.String()))
	log.Warn("all extraction methods failed")
	return nil
}

func (n *Extract) String() string {
	return fmt.Sprintf("extract(%s, %s)", n.field, n.priority)
}
