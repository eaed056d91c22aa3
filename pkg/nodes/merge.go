package nodes

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/ports"
)

const (
	DefaultConfidenceField = "confidence"
	turnField              = "turn_extracted"
)

// MergeInput is one candidate update for a record.
type MergeInput struct {
	Data       map[string]any
	Confidence float64
	// Turn, when positive, is stamped as turn_extracted on a successful write.
	Turn int
}

// MergeSource derives the candidate update from the state. ok=false skips the merge.
type MergeSource func(st *domain.State) (in MergeInput, ok bool)

// MergeConfig configures a Merge node.
type MergeConfig struct {
	// Path is the record being protected, e.g. "customer".
	Path            string
	ConfidenceField string
	MergeFn         ports.MergeFunc
	// Source supplies the candidate when the node runs inside a graph.
	Source MergeSource
}

// Merge is the only sanctioned way to overwrite a previously extracted record.
// A candidate with confidence not strictly greater than the stored one is
// rejected without touching the record.
type Merge struct {
	base
	path     fieldpath.Path
	confPath fieldpath.Path
	mergeFn  ports.MergeFunc
	source   MergeSource
}

// NewMerge validates cfg and builds the node.
func NewMerge(name string, cfg MergeConfig, opts ...Option) (*Merge, error) {
	path, err := parsePath("path", cfg.Path)
	if err != nil {
		return nil, err
	}
	if cfg.ConfidenceField == "" {
		cfg.ConfidenceField = DefaultConfidenceField
	}
	confPath, err := parsePath("confidence field", cfg.ConfidenceField)
	if err != nil {
		return nil, err
	}
	return &Merge{
		base:     newBase(name, opts),
		path:     path,
		confPath: confPath,
		mergeFn:  cfg.MergeFn,
		source:   cfg.Source,
	}, nil
}

func (n *Merge) Run(_ context.Context, st *domain.State) error {
	if n.source == nil {
		return nil
	}
	in, ok := n.source(st)
	if !ok {
		return nil
	}
	n.Apply(st, in)
	return nil
}

// Apply merges in into the record and reports whether the record changed.
func (n *Merge) Apply(st *domain.State, in MergeInput) bool {
	log := n.logger.With("conversation_id", st.ConversationID, "path", n.path.String())
	existing := fieldpath.Record(st.Slots, n.path)

	if len(existing) == 0 {
		st.Set(n.path, n.stamp(copyRecord(in.Data), in.Confidence, in.Turn))
		log.Info("record written", "confidence", in.Confidence)
		return true
	}

	existingConf, _ := fieldpath.Float(existing, n.confPath)

	if n.mergeFn != nil {
		merged, err := n.mergeFn(copyRecord(existing), copyRecord(in.Data), existingConf, in.Confidence)
		if err == nil {
			if merged == nil {
				merged = map[string]any{}
			}
			st.Set(n.path, n.stamp(merged, max(existingConf, in.Confidence), in.Turn))
			log.Info("record merged with custom function", "existing_confidence", existingConf, "new_confidence", in.Confidence)
			return true
		}
		log.Warn("custom merge failed, using confidence strategy", "error", err)
	}

	if in.Confidence <= existingConf {
		log.Info("update rejected, confidence not higher", "existing_confidence", existingConf, "new_confidence", in.Confidence)
		return false
	}

	merged := copyRecord(existing)
	for k, v := range in.Data {
		merged[k] = v
	}
	st.Set(n.path, n.stamp(merged, in.Confidence, in.Turn))
	log.Info("record updated", "existing_confidence", existingConf, "new_confidence", in.Confidence)
	return true
}

func (n *Merge) stamp(rec map[string]any, conf float64, turn int) map[string]any {
	fieldpath.Set(rec, n.confPath, conf)
	if turn > 0 {
		rec[turnField] = turn
	}
	return rec
}

// FromPath builds a MergeSource that reads a staged record and its
// confidence from the state. stampTurn stamps State.Turn on the write.
func FromPath(dataPath, confidencePath string, stampTurn bool) (MergeSource, error) {
	data, err := parsePath("data path", dataPath)
	if err != nil {
		return nil, err
	}
	conf, err := parsePath("confidence path", confidencePath)
	if err != nil {
		return nil, err
	}
	return func(st *domain.State) (MergeInput, bool) {
		var rec map[string]any
		switch v := st.Get(data).(type) {
		case map[string]any:
			rec = v
		case nil:
			return MergeInput{}, false
		default:
			rec = map[string]any{data.Leaf(): v}
		}
		if len(rec) == 0 {
			return MergeInput{}, false
		}
		c, _ := fieldpath.Float(st.Slots, conf)
		in := MergeInput{Data: rec, Confidence: c}
		if stampTurn {
			in.Turn = st.Turn
		}
		return in, true
	}, nil
}
