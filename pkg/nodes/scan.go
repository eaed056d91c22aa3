package nodes

import (
	"context"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/ports"
)

const (
	DefaultScanTurns      = 10
	DefaultScanConfidence = 0.5
	MethodRetroactiveScan = "retroactive_scan"
)

// ScanConfig configures a Scan node.
type ScanConfig struct {
	Extractor ports.Extractor
	Field     string
	// MaxTurns is the window size. Zero means DefaultScanTurns.
	MaxTurns int
	// SkipIfExists leaves an already populated field alone.
	SkipIfExists bool
	Timeout      time.Duration
	// UserTurnsOnly ignores assistant entries.
	UserTurnsOnly bool
	// Record writes the whole field record, as in ExtractConfig.
	Record bool
}

// Scan re-runs an extractor over recent history, most recent first, and
// stops at the first turn that yields a value.
type Scan struct {
	base
	extractor ports.Extractor
	field     fieldpath.Path
	meta      fieldpath.Path
	maxTurns  int
	skip      bool
	timeout   time.Duration
	userOnly  bool
	record    bool
}

// NewScan validates cfg and builds the node.
func NewScan(name string, cfg ScanConfig, opts ...Option) (*Scan, error) {
	field, err := parsePath("field", cfg.Field)
	if err != nil {
		return nil, err
	}
	if cfg.Extractor == nil {
		return nil, configError("scan %s: extractor is required", name)
	}
	if cfg.MaxTurns < 0 {
		return nil, configError("scan %s: negative max turns", name)
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = DefaultScanTurns
	}
	return &Scan{
		base:      newBase(name, opts),
		extractor: cfg.Extractor,
		field:     field,
		meta:      field.WithSuffix("_scan_metadata"),
		maxTurns:  cfg.MaxTurns,
		skip:      cfg.SkipIfExists,
		timeout:   cfg.Timeout,
		userOnly:  cfg.UserTurnsOnly,
		record:    cfg.Record,
	}, nil
}

func (n *Scan) Run(ctx context.Context, st *domain.State) error {
	log := n.logger.With("conversation_id", st.ConversationID, "field", n.field.String())

	if n.skip && fieldpath.Exists(st.Slots, n.field) {
		log.Debug("field already present, skipping scan")
		return nil
	}
	if len(st.History) == 0 {
		log.Debug("no history to scan")
		return nil
	}

	history := append([]domain.Turn(nil), st.History...)
	start := len(history) - n.maxTurns
	if start < 0 {
		start = 0
	}

	for idx := len(history) - 1; idx >= start; idx-- {
		turnsBack := len(history) - idx
		turn := history[idx]
		if turn.Content == "" || (n.userOnly && turn.Role != domain.RoleUser) {
			continue
		}

		prior := history[:idx]
		ex, err := boundedExtract(ctx, n.timeout, func(ctx context.Context) (domain.Extraction, error) {
			return n.extractor.Extract(ctx, prior, turn.Content)
		})
		if err != nil {
			log.Debug("scan attempt failed", "turns_back", turnsBack, "error", err)
			continue
		}
		v := pick(ex, n.field.Leaf(), n.record)
		if v == nil {
			continue
		}

		conf := ex.Confidence
		if conf <= 0 {
			conf = DefaultScanConfidence
		}
		st.Set(n.field, v)
		st.Set(n.meta, map[string]any{
			"method":     MethodRetroactiveScan,
			"turns_back": turnsBack,
			"confidence": conf,
		})
		log.Info("field recovered from history", "turns_back", turnsBack, "confidence", conf)
		return nil
	}

	st.AddError(domain.TagScanFailed(n.field.String()))
	log.Info("scan window exhausted", "turns", len(history)-start)
	return nil
}
