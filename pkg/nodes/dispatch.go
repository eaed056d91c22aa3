package nodes

import (
	"context"
	"errors"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

// ErrNoRecipient is wrapped when the state has no conversation id to send to.
var ErrNoRecipient = errors.New("no recipient")

// DispatchConfig configures a Dispatch node.
type DispatchConfig struct {
	Message   ports.MessageBuilder
	Transport ports.Transport
	// SkipHistory disables recording the sent text in history and Response.
	SkipHistory bool
	// OnFailure only distinguishes FailRaise; FailClear behaves like FailLog.
	OnFailure FailurePolicy
}

// Dispatch renders and sends an outbound message.
type Dispatch struct {
	base
	builder   ports.MessageBuilder
	transport ports.Transport
	store     bool
	onFailure FailurePolicy
}

// NewDispatch validates cfg and builds the node.
func NewDispatch(name string, cfg DispatchConfig, opts ...Option) (*Dispatch, error) {
	if cfg.Message == nil {
		return nil, configError("dispatch %s: message builder is required", name)
	}
	if cfg.Transport == nil {
		return nil, configError("dispatch %s: transport is required", name)
	}
	if cfg.OnFailure == "" {
		cfg.OnFailure = FailLog
	}
	if !cfg.OnFailure.valid() {
		return nil, configError("dispatch %s: unknown failure policy %q", name, cfg.OnFailure)
	}
	return &Dispatch{
		base:      newBase(name, opts),
		builder:   cfg.Message,
		transport: cfg.Transport,
		store:     !cfg.SkipHistory,
		onFailure: cfg.OnFailure,
	}, nil
}

func (n *Dispatch) Run(ctx context.Context, st *domain.State) error {
	log := n.logger.With("conversation_id", st.ConversationID)

	text, err := n.builder.BuildMessage(st)
	if err != nil {
		st.AddError(domain.TagMessageBuilderError)
		log.Error("message builder failed", "error", err)
		return n.maybeRaise(domain.TagMessageBuilderError, err)
	}

	if st.ConversationID == "" {
		st.AddError(domain.TagNoRecipient)
		log.Error("no recipient for outbound message")
		return n.maybeRaise(domain.TagNoRecipient, ErrNoRecipient)
	}

	if err := n.transport.Send(ctx, st.ConversationID, text); err != nil {
		st.AddError(domain.TagSendFailed)
		log.Error("message delivery failed", "error", err)
		return n.maybeRaise(domain.TagSendFailed, err)
	}

	if n.store {
		st.AppendTurn(domain.RoleAssistant, text)
		st.Response = text
	}
	log.Info("message sent", "chars", len(text))
	return nil
}

func (n *Dispatch) maybeRaise(tag string, err error) error {
	if n.onFailure == FailRaise {
		return n.fail(tag, err)
	}
	return nil
}
