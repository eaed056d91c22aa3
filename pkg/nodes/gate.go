package nodes

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
)

// Gate decisions.
const (
	DecisionHigh = "high_confidence"
	DecisionLow  = "low_confidence"
)

// GateConfig configures a Gate node.
type GateConfig struct {
	ConfidencePath string
	Threshold      float64
}

// Gate records whether a confidence reaches a threshold. It writes only
// State.GateDecision and State.Decisions[name].
type Gate struct {
	base
	path      fieldpath.Path
	threshold float64
}

// NewGate validates cfg and builds the node.
func NewGate(name string, cfg GateConfig, opts ...Option) (*Gate, error) {
	path, err := parsePath("confidence path", cfg.ConfidencePath)
	if err != nil {
		return nil, err
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, configError("gate %s: threshold %v outside [0,1]", name, cfg.Threshold)
	}
	return &Gate{base: newBase(name, opts), path: path, threshold: cfg.Threshold}, nil
}

// Decide returns the label for st without mutating it. A missing or
// non-numeric confidence is treated as 0.
func (n *Gate) Decide(st *domain.State) string {
	conf, _ := fieldpath.Float(st.Slots, n.path)
	if conf >= n.threshold {
		return DecisionHigh
	}
	return DecisionLow
}

func (n *Gate) Run(_ context.Context, st *domain.State) error {
	decision := n.Decide(st)
	st.GateDecision = decision
	if st.Decisions == nil {
		st.Decisions = make(map[string]string)
	}
	st.Decisions[n.name] = decision
	n.logger.Debug("gate decided", "conversation_id", st.ConversationID, "decision", decision)
	return nil
}
