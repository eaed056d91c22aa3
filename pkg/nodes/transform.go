package nodes

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/ports"
)

// EmptyPolicy selects what Transform does when its source is absent.
type EmptyPolicy string

const (
	EmptySkip    EmptyPolicy = "skip"
	EmptyRaise   EmptyPolicy = "raise"
	EmptyDefault EmptyPolicy = "default"
)

// TransformConfig configures a Transform node.
type TransformConfig struct {
	Transformer ports.Transformer
	Source      string
	Target      string
	OnEmpty     EmptyPolicy
}

// Transform derives Target from Source with a pure function.
type Transform struct {
	base
	fn      ports.Transformer
	source  fieldpath.Path
	target  fieldpath.Path
	onEmpty EmptyPolicy
}

// NewTransform validates cfg and builds the node. OnEmpty defaults to EmptySkip.
func NewTransform(name string, cfg TransformConfig, opts ...Option) (*Transform, error) {
	source, err := parsePath("source", cfg.Source)
	if err != nil {
		return nil, err
	}
	target, err := parsePath("target", cfg.Target)
	if err != nil {
		return nil, err
	}
	if cfg.Transformer == nil {
		return nil, configError("transform %s: transformer is required", name)
	}
	switch cfg.OnEmpty {
	case "":
		cfg.OnEmpty = EmptySkip
	case EmptySkip, EmptyRaise, EmptyDefault:
	default:
		return nil, configError("transform %s: unknown empty policy %q", name, cfg.OnEmpty)
	}
	return &Transform{
		base:    newBase(name, opts),
		fn:      cfg.Transformer,
		source:  source,
		target:  target,
		onEmpty: cfg.OnEmpty,
	}, nil
}

func (n *Transform) Run(_ context.Context, st *domain.State) error {
	log := n.logger.With("conversation_id", st.ConversationID, "source", n.source.String(), "target", n.target.String())

	value := st.Get(n.source)
	if value == nil {
		switch n.onEmpty {
		case EmptyRaise:
			log.Warn("transform source is empty")
			return n.fail("", ErrSourceEmpty)
		case EmptyDefault:
			st.Set(n.target, nil)
		}
		return nil
	}

	result, err := n.fn.Transform(value, st)
	if err != nil {
		tag := domain.TagTransformError(n.target.String())
		st.AddError(tag)
		log.Error("transform failed", "error", err)
		if n.onEmpty == EmptyRaise {
			return n.fail(tag, err)
		}
		return nil
	}

	st.Set(n.target, result)
	return nil
}
