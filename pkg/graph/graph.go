package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
)

// DefaultMaxSteps bounds the node executions of one invocation.
const DefaultMaxSteps = 100

var (
	// ErrUnknownNode is returned when an edge or resume mapping names a missing node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrStepLimit is returned when an invocation exceeds the step budget.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Graph is a compiled, immutable workflow.
type Graph struct {
	vertices map[string]*vertex
	order    []string
	entry    string
	resume   map[string]string
	maxSteps int
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// WithHooks registers node enter/leave hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(g *Graph) { g.hooks = h }
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxSteps = n
		}
	}
}

func (g *Graph) apply(opts []Option) {
	g.maxSteps = DefaultMaxSteps
	g.logger = logging.NewNop()
	for _, opt := range opts {
		opt(g)
	}
}

// With returns a copy of g with additional options applied.
func (g *Graph) With(opts ...Option) *Graph {
	next := *g
	for _, opt := range opts {
		opt(&next)
	}
	return &next
}

// Entry returns the name of the fresh-invocation entry node.
func (g *Graph) Entry() string { return g.entry }

// Edge is one transition of the graph.
type Edge struct {
	From string
	// To is END for edges that finish the invocation.
	To string
	// Label is set by NodeBuilder.Label; conditional edges without one are
	// labelled "when #n".
	Label string
	// Default marks the Go fallback edge.
	Default bool
}

// Nodes returns the node names in declaration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Edges returns every edge: conditional edges in evaluation order, then the
// default edge of each node.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, name := range g.order {
		v := g.vertices[name]
		for i, br := range v.branches {
			label := br.label
			if label == "" {
				label = fmt.Sprintf("when #%d", i+1)
			}
			edges = append(edges, Edge{From: name, To: br.to, Label: label})
		}
		edges = append(edges, Edge{From: name, To: v.next, Default: true})
	}
	return edges
}

// ResumePoints maps each awaited step to the node that handles the reply.
func (g *Graph) ResumePoints() map[string]string {
	out := make(map[string]string, len(g.resume))
	for step, node := range g.resume {
		out[step] = node
	}
	return out
}

// Start returns the node an invocation for st starts at.
func (g *Graph) Start(st *domain.State) string {
	if st.CurrentStep != "" {
		if name, ok := g.resume[st.CurrentStep]; ok {
			return name
		}
	}
	return g.entry
}

// Run drives st through the graph until END, a pause, or a node error.
func (g *Graph) Run(ctx context.Context, st *domain.State) error {
	log := g.logger.With("conversation_id", st.ConversationID)

	current := g.Start(st)
	for steps := 0; current != END; steps++ {
		if steps >= g.maxSteps {
			return fmt.Errorf("%w: %d steps, last node %s", ErrStepLimit, g.maxSteps, current)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		v := g.vertices[current]
		if err := g.runNode(ctx, v, st); err != nil {
			return err
		}

		if !st.ShouldProceed {
			log.Debug("workflow paused", "node", current, "step", st.CurrentStep)
			return nil
		}
		current = v.successor(st)
	}
	return nil
}

func (g *Graph) runNode(ctx context.Context, v *vertex, st *domain.State) error {
	name := v.node.Name()
	before := len(st.Errors)
	start := time.Now()

	if g.hooks.OnNodeEnter != nil {
		g.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventNodeEnter, ConversationID: st.ConversationID},
			Node:      name,
		})
	}

	err := v.node.Run(ctx, st)

	if g.hooks.OnNodeLeave != nil {
		ev := &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, ConversationID: st.ConversationID},
			Node:      name,
			Duration:  time.Since(start),
			Err:       err,
		}
		if len(st.Errors) > before {
			ev.NewErrors = append([]string(nil), st.Errors[before:]...)
		}
		g.hooks.OnNodeLeave(ctx, ev)
	}

	if err != nil {
		g.logger.Error("node failed", "conversation_id", st.ConversationID, "node", name, "error", err)
		return err
	}
	return nil
}

func (v *vertex) successor(st *domain.State) string {
	for _, br := range v.branches {
		if br.cond(st) {
			return br.to
		}
	}
	return v.next
}
