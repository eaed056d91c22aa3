package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const awaitingService = "awaiting_service_selection"

func serviceGroup(t *testing.T, trace *[]string) *Group {
	t.Helper()
	record := func(name string, fn func(st *domain.State)) Node {
		return Func(name, func(_ context.Context, st *domain.State) error {
			*trace = append(*trace, name)
			if fn != nil {
				fn(st)
			}
			return nil
		})
	}

	g, err := NewGroup("service_selection", GroupConfig{
		Step: awaitingService,
		Ready: ports.PredicateFunc(func(st *domain.State) (bool, error) {
			_, ok := st.Slots["service_options"]
			return ok, nil
		}),
		Completed: ports.PredicateFunc(func(st *domain.State) (bool, error) {
			_, ok := st.Slots["service"]
			return ok, nil
		}),
		Fresh: []Node{
			record("fetch_services", func(st *domain.State) {
				st.Slots["service_options"] = []any{"oil change", "wash"}
			}),
			record("show_services", nil),
		},
		Select: ports.SelectorFunc(func(_ context.Context, st *domain.State) (bool, error) {
			*trace = append(*trace, "select")
			for _, opt := range st.Slots["service_options"].([]any) {
				if strings.EqualFold(opt.(string), st.UserMessage) {
					st.Slots["service"] = opt
					return true, nil
				}
			}
			return false, nil
		}),
		Retry: []Node{record("reprompt", nil)},
	})
	require.NoError(t, err)
	return g
}

func TestGroup_FreshThenResume(t *testing.T) {
	var trace []string
	g := serviceGroup(t, &trace)

	st := stateWith("I need a service")
	require.NoError(t, g.Run(context.Background(), st))
	assert.Equal(t, []string{"fetch_services", "show_services"}, trace)
	assert.Equal(t, awaitingService, st.CurrentStep)
	assert.False(t, st.ShouldProceed)

	trace = nil
	st.BeginTurn("wash")
	require.NoError(t, g.Run(context.Background(), st))
	assert.Equal(t, []string{"select"}, trace)
	assert.Equal(t, "wash", st.Slots["service"])
	assert.Empty(t, st.CurrentStep)
	assert.True(t, st.ShouldProceed)
}

func TestGroup_InvalidReplyStaysPaused(t *testing.T) {
	var trace []string
	g := serviceGroup(t, &trace)

	st := stateWith("hello")
	st.Slots["service_options"] = []any{"oil change"}
	st.Pause(awaitingService)
	st.BeginTurn("pizza")

	require.NoError(t, g.Run(context.Background(), st))
	assert.Equal(t, []string{"select", "reprompt"}, trace)
	assert.Equal(t, awaitingService, st.CurrentStep)
	assert.False(t, st.ShouldProceed)
	assert.NotContains(t, st.Slots, "service")
}

func TestGroup_Routes(t *testing.T) {
	var trace []string
	g := serviceGroup(t, &trace)

	tests := []struct {
		name  string
		setup func(st *domain.State)
		want  Route
	}{
		{name: "fresh", setup: func(*domain.State) {}, want: RouteFresh},
		{name: "resume", setup: func(st *domain.State) {
			st.CurrentStep = awaitingService
			st.Slots["service_options"] = []any{}
		}, want: RouteResume},
		{name: "step without data", setup: func(st *domain.State) {
			st.CurrentStep = awaitingService
		}, want: RouteFresh},
		{name: "already resolved", setup: func(st *domain.State) {
			st.Slots["service"] = "wash"
		}, want: RouteResolved},
		{name: "other step", setup: func(st *domain.State) {
			st.CurrentStep = "awaiting_vehicle_selection"
			st.Slots["service"] = "wash"
		}, want: RouteFresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := stateWith("hi")
			tt.setup(st)
			got, err := g.Route(st)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroup_ResolvedIsNoOp(t *testing.T) {
	var trace []string
	g := serviceGroup(t, &trace)

	st := stateWith("thanks")
	st.Slots["service"] = "wash"
	require.NoError(t, g.Run(context.Background(), st))
	assert.Empty(t, trace)
	assert.True(t, st.ShouldProceed)
}

func TestGroup_SelectorError(t *testing.T) {
	g, err := NewGroup("g", GroupConfig{
		Step: "awaiting_x",
		Select: ports.SelectorFunc(func(context.Context, *domain.State) (bool, error) {
			return false, errors.New("model offline")
		}),
	})
	require.NoError(t, err)

	st := stateWith("x")
	st.CurrentStep = "awaiting_x"
	err = g.Run(context.Background(), st)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "g", nodeErr.Node)
}

func TestNewGroup_RequiresStepAndSelector(t *testing.T) {
	_, err := NewGroup("g", GroupConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewGroup("g", GroupConfig{Step: "awaiting_x"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
