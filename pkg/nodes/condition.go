package nodes

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Condition evaluates a predicate for the branching layer. It records the
// result in State.ConditionResult and its own name in State.LastCondition.
// A predicate error records false and the error text.
type Condition struct {
	base
	pred ports.Predicate
}

// NewCondition builds a Condition node.
func NewCondition(name string, pred ports.Predicate, opts ...Option) (*Condition, error) {
	if pred == nil {
		return nil, configError("condition %s: predicate is required", name)
	}
	return &Condition{base: newBase(name, opts), pred: pred}, nil
}

func (n *Condition) Run(_ context.Context, st *domain.State) error {
	st.LastCondition = n.name
	ok, err := n.pred.Eval(st)
	if err != nil {
		st.ConditionResult = false
		st.ConditionError = err.Error()
		n.logger.Warn("condition failed", "conversation_id", st.ConversationID, "error", err)
		return nil
	}
	st.ConditionResult = ok
	st.ConditionError = ""
	return nil
}
