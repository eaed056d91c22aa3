package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Route is the router decision of a Group.
type Route string

const (
	// RouteFresh runs the fetch/display entry and pauses.
	RouteFresh Route = "fresh"
	// RouteResume hands the reply to the selector.
	RouteResume Route = "resume"
	// RouteResolved skips the group entirely.
	RouteResolved Route = "resolved"
)

// GroupConfig configures a reusable multi-turn node group.
type GroupConfig struct {
	// Step is the awaiting-input marker, e.g. "awaiting_vehicle_selection".
	Step string
	// Ready reports whether the data the selector needs is in the state.
	// Nil means always ready.
	Ready ports.Predicate
	// Completed reports whether the group already resolved in an earlier
	// invocation. Nil means never.
	Completed ports.Predicate
	// Fresh runs in order on the fresh route (fetch, display).
	Fresh []Node
	// Select parses the user's reply on the resume route.
	Select ports.Selector
	// Retry runs when the reply did not resolve the step (e.g. a re-prompt).
	Retry []Node
}

// Group is a resume router plus the step state machine
// fresh -> awaiting-input -> resolved.
type Group struct {
	base
	step      string
	ready     ports.Predicate
	completed ports.Predicate
	fresh     []Node
	sel       ports.Selector
	retry     []Node
}

// NewGroup validates cfg and builds the node.
func NewGroup(name string, cfg GroupConfig, opts ...Option) (*Group, error) {
	if cfg.Step == "" {
		return nil, configError("group %s: step marker is required", name)
	}
	if cfg.Select == nil {
		return nil, configError("group %s: selector is required", name)
	}
	return &Group{
		base:      newBase(name, opts),
		step:      cfg.Step,
		ready:     cfg.Ready,
		completed: cfg.Completed,
		fresh:     cfg.Fresh,
		sel:       cfg.Select,
		retry:     cfg.Retry,
	}, nil
}

// Step returns the awaiting-input marker.
func (g *Group) Step() string { return g.step }

// Route decides which path the group takes for st.
func (g *Group) Route(st *domain.State) (Route, error) {
	if st.CurrentStep == g.step {
		ready, err := eval(g.ready, st, true)
		if err != nil {
			return "", err
		}
		if ready {
			return RouteResume, nil
		}
		return RouteFresh, nil
	}
	if st.CurrentStep == "" {
		done, err := eval(g.completed, st, false)
		if err != nil {
			return "", err
		}
		if done {
			return RouteResolved, nil
		}
	}
	return RouteFresh, nil
}

func (g *Group) Run(ctx context.Context, st *domain.State) error {
	log := g.logger.With("conversation_id", st.ConversationID, "step", g.step)

	route, err := g.Route(st)
	if err != nil {
		return g.fail("", fmt.Errorf("route: %w", err))
	}
	log.Debug("group routed", "route", string(route))

	switch route {
	case RouteResolved:
		return nil

	case RouteResume:
		ok, err := g.sel.Select(ctx, st)
		if err != nil {
			return g.fail("", fmt.Errorf("select: %w", err))
		}
		if ok {
			st.Resolve()
			log.Info("step resolved")
			return nil
		}
		if err := runAll(ctx, g.retry, st); err != nil {
			return err
		}
		st.Pause(g.step)
		log.Info("reply did not resolve step, still awaiting input")
		return nil

	default:
		if err := runAll(ctx, g.fresh, st); err != nil {
			return err
		}
		st.Pause(g.step)
		log.Info("awaiting input")
		return nil
	}
}

func runAll(ctx context.Context, nodes []Node, st *domain.State) error {
	for _, n := range nodes {
		if err := n.Run(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func eval(p ports.Predicate, st *domain.State, dflt bool) (bool, error) {
	if p == nil {
		return dflt, nil
	}
	return p.Eval(st)
}
