package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trace struct {
	mu    sync.Mutex
	steps []string
}

func (tr *trace) node(name string, fn func(st *domain.State) error) nodes.Node {
	return nodes.Func(name, func(_ context.Context, st *domain.State) error {
		tr.mu.Lock()
		tr.steps = append(tr.steps, name)
		tr.mu.Unlock()
		if fn != nil {
			return fn(st)
		}
		return nil
	})
}

func freshState() *domain.State {
	st := domain.NewState("conv-1")
	st.BeginTurn("hi")
	return st
}

func TestGraph_LinearRun(t *testing.T) {
	tr := &trace{}
	b := New()
	b.Add(tr.node("a", nil)).Go("b")
	b.Add(tr.node("b", nil)).Go("c")
	b.Add(tr.node("c", nil)).Go(END)

	g, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, g.Run(context.Background(), freshState()))
	assert.Equal(t, []string{"a", "b", "c"}, tr.steps)
}

func TestGraph_StopsWhenPaused(t *testing.T) {
	tr := &trace{}
	b := New()
	b.Add(tr.node("ask", func(st *domain.State) error {
		st.Pause("awaiting_name")
		return nil
	})).Go("after")
	b.Add(tr.node("after", nil))

	g, err := b.Build()
	require.NoError(t, err)

	st := freshState()
	require.NoError(t, g.Run(context.Background(), st))
	assert.Equal(t, []string{"ask"}, tr.steps)
	assert.Equal(t, "awaiting_name", st.CurrentStep)
}

func TestGraph_ResumeStartsAtMappedNode(t *testing.T) {
	tr := &trace{}
	b := New()
	b.Add(tr.node("greet", nil)).Go("select")
	b.Add(tr.node("select", func(st *domain.State) error {
		st.Resolve()
		return nil
	})).Go("confirm")
	b.Add(tr.node("confirm", nil))
	b.Resume("awaiting_service_selection", "select")

	g, err := b.Build()
	require.NoError(t, err)

	st := freshState()
	st.CurrentStep = "awaiting_service_selection"
	assert.Equal(t, "select", g.Start(st))

	require.NoError(t, g.Run(context.Background(), st))
	assert.Equal(t, []string{"select", "confirm"}, tr.steps)

	st.CurrentStep = "awaiting_unknown"
	assert.Equal(t, "greet", g.Start(st))
}

func TestGraph_Branches(t *testing.T) {
	gate, err := nodes.NewGate("name_gate", nodes.GateConfig{ConfidencePath: "name_meta.confidence", Threshold: 0.8})
	require.NoError(t, err)

	tests := []struct {
		name       string
		confidence float64
		want       []string
	}{
		{name: "high skips scan", confidence: 0.95, want: []string{"merge"}},
		{name: "low scans", confidence: 0.5, want: []string{"scan", "merge"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &trace{}
			b := New()
			b.Add(gate).
				When(Decision("name_gate", nodes.DecisionLow), "scan").
				Go("merge")
			b.Add(tr.node("scan", nil)).Go("merge")
			b.Add(tr.node("merge", nil))

			g, err := b.Build()
			require.NoError(t, err)

			st := freshState()
			st.Slots["name_meta"] = map[string]any{"confidence": tt.confidence}
			require.NoError(t, g.Run(context.Background(), st))
			assert.Equal(t, tt.want, tr.steps)
		})
	}
}

func TestGraph_ConditionAndErrorBranches(t *testing.T) {
	tr := &trace{}
	b := New()
	b.Add(tr.node("check", func(st *domain.State) error {
		st.ConditionResult = false
		st.AddError("api_call_failed_vehicles")
		return nil
	})).
		When(HasError("api_call_failed_vehicles"), "apologise").
		When(ConditionIs(true), "happy").
		Go("sad")
	b.Add(tr.node("apologise", nil)).When(Not(ConditionIs(true)), "sad")
	b.Add(tr.node("happy", nil))
	b.Add(tr.node("sad", nil))

	g, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, g.Run(context.Background(), freshState()))
	assert.Equal(t, []string{"check", "apologise", "sad"}, tr.steps)
}

func TestHas(t *testing.T) {
	st := freshState()
	has := Has("customer.first_name")
	assert.False(t, has(st))

	st.Slots["customer"] = map[string]any{"first_name": ""}
	assert.False(t, has(st))

	st.Slots["customer"] = map[string]any{"first_name": "Ravi"}
	assert.True(t, has(st))
}

func TestGraph_Introspection(t *testing.T) {
	tr := &trace{}
	b := New()
	b.Add(tr.node("check", nil)).
		When(ConditionIs(true), "done").Label("known").
		When(HasError("boom"), "ask").
		Go("ask")
	b.Add(tr.node("ask", nil))
	b.Add(tr.node("done", nil))
	b.Resume("awaiting_answer", "check")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"check", "ask", "done"}, g.Nodes())
	assert.Equal(t, []Edge{
		{From: "check", To: "done", Label: "known"},
		{From: "check", To: "ask", Label: "when #2"},
		{From: "check", To: "ask", Default: true},
		{From: "ask", To: END, Default: true},
		{From: "done", To: END, Default: true},
	}, g.Edges())
	assert.Equal(t, map[string]string{"awaiting_answer": "check"}, g.ResumePoints())
}

func TestGraph_NodeErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	tr := &trace{}
	b := New()
	b.Add(tr.node("a", func(*domain.State) error { return boom })).Go("b")
	b.Add(tr.node("b", nil))

	g, err := b.Build()
	require.NoError(t, err)

	err = g.Run(context.Background(), freshState())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, tr.steps)
}

func TestGraph_StepLimit(t *testing.T) {
	tr := &trace{}
	b := New()
	b.Add(tr.node("ping", nil)).Go("pong")
	b.Add(tr.node("pong", nil)).Go("ping")

	g, err := b.Build(WithMaxSteps(5))
	require.NoError(t, err)

	err = g.Run(context.Background(), freshState())
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Len(t, tr.steps, 5)
}

func TestGraph_CancelledContext(t *testing.T) {
	tr := &trace{}
	b := New()
	b.Add(tr.node("a", nil))
	g, err := b.Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.Run(ctx, freshState()), context.Canceled)
	assert.Empty(t, tr.steps)
}

func TestGraph_Hooks(t *testing.T) {
	var entered, left []string
	var newErrors []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.Node)
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			left = append(left, e.Node)
			newErrors = append(newErrors, e.NewErrors...)
		},
	}

	tr := &trace{}
	b := New()
	b.Add(tr.node("a", nil)).Go("b")
	b.Add(tr.node("b", func(st *domain.State) error {
		st.AddError("scan_failed_name")
		return nil
	}))

	g, err := b.Build(WithHooks(hooks))
	require.NoError(t, err)
	require.NoError(t, g.Run(context.Background(), freshState()))

	assert.Equal(t, []string{"a", "b"}, entered)
	assert.Equal(t, []string{"a", "b"}, left)
	assert.Equal(t, []string{"scan_failed_name"}, newErrors)
}

func TestBuilder_Validation(t *testing.T) {
	tr := &trace{}

	t.Run("unknown edge", func(t *testing.T) {
		b := New()
		b.Add(tr.node("a", nil)).Go("missing")
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrUnknownNode)
	})

	t.Run("unknown resume target", func(t *testing.T) {
		b := New()
		b.Add(tr.node("a", nil))
		b.Resume("awaiting_x", "missing")
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrUnknownNode)
	})

	t.Run("unknown entry", func(t *testing.T) {
		b := New()
		b.Add(tr.node("a", nil))
		b.Entry("missing")
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrUnknownNode)
	})

	t.Run("duplicate", func(t *testing.T) {
		b := New()
		b.Add(tr.node("a", nil))
		b.Add(tr.node("a", nil))
		_, err := b.Build()
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := New().Build()
		assert.Error(t, err)
	})
}
