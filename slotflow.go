package slotflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/graph"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/aretw0/slotflow/pkg/session"
)

// ErrNoGraph is returned by New when no graph is given.
var ErrNoGraph = errors.New("graph is required")

// Engine is the high-level entry point for the Slotflow library.
// It turns one inbound message into one graph invocation over the
// conversation's persisted state, serialized per conversation.
type Engine struct {
	graph    *graph.Graph
	sessions *session.Manager

	store    ports.StateStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxInput int
	now      func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where conversation state is persisted (default: in memory).
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker adds a distributed lock on top of the in-process one, for
// deployments with more than one Engine sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxInputSize overrides DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.maxInput = n
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes an Engine that runs g.
func New(g *graph.Graph, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, ErrNoGraph
	}
	eng := &Engine{maxInput: DefaultMaxInputSize, now: time.Now}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	sessOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithLockTTL(eng.lockTTL),
	}
	if eng.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessOpts...)
	eng.graph = g.With(graph.WithLogger(eng.logger), graph.WithHooks(eng.hooks))
	return eng, nil
}

// Handle processes one inbound message for the conversation: it loads the
// state (or starts a new one), resets the per-invocation fields, runs the
// graph and saves the result. The state is saved even when the graph fails.
//
// It returns the saved state and what this invocation changed. Both are nil
// when the message was rejected or the conversation lock was not acquired.
func (e *Engine) Handle(ctx context.Context, conversationID, message string) (*domain.State, *domain.TurnDiff, error) {
	text, err := SanitizeInput(message, e.maxInput)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	var diff *domain.TurnDiff
	state, err := e.sessions.Update(ctx, conversationID, func(ctx context.Context, st *domain.State) error {
		before := st.Clone()
		st.BeginTurn(text)

		runErr := e.graph.Run(ctx, st)

		st.UpdatedAt = e.now()
		diff = domain.Diff(before, st)
		return runErr
	})
	if diff == nil {
		return nil, nil, err
	}

	e.logger.Debug("turn handled",
		"conversation_id", conversationID,
		"turn", state.Turn,
		"current_step", state.CurrentStep,
		"changed_slots", len(diff.Slots),
		"errors", diff.Errors,
	)
	if e.hooks.OnTurnComplete != nil {
		e.hooks.OnTurnComplete(ctx, &domain.TurnEvent{
			EventBase: domain.EventBase{
				Timestamp:      state.UpdatedAt,
				Type:           domain.EventTurnComplete,
				ConversationID: conversationID,
			},
			Paused:   state.Paused(),
			Errors:   state.Errors,
			Duration: time.Since(start),
			Err:      err,
		})
	}
	return state, diff, err
}

// Conversation returns the stored state of a conversation.
func (e *Engine) Conversation(ctx context.Context, conversationID string) (*domain.State, error) {
	return e.sessions.Load(ctx, conversationID)
}

// Reset forgets a conversation. The next message starts it afresh.
func (e *Engine) Reset(ctx context.Context, conversationID string) error {
	return e.sessions.Delete(ctx, conversationID)
}

// Conversations lists the stored conversation ids.
func (e *Engine) Conversations(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Graph returns the graph the engine runs.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}
