package slotflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/flows"
	"github.com/aretw0/slotflow/pkg/graph"
	"github.com/aretw0/slotflow/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.New()
	b.Add(nodes.Func("count", func(_ context.Context, st *domain.State) error {
		n, _ := st.Slots["count"].(int)
		st.Slots["count"] = n + 1
		return nil
	}))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func bookingEngine(t *testing.T, opts ...slotflow.Option) (*slotflow.Engine, *memory.Outbox) {
	t.Helper()
	outbox := memory.NewOutbox()
	g, err := flows.NewBooking(flows.BookingConfig{
		Transport: outbox,
		Catalog:   flows.CatalogRequest("http://catalog.local/services"),
		Doer:      flows.StaticCatalog{Services: flows.DefaultServices},
	})
	require.NoError(t, err)
	eng, err := slotflow.New(g, opts...)
	require.NoError(t, err)
	return eng, outbox
}

func TestNew_RequiresGraph(t *testing.T) {
	_, err := slotflow.New(nil)
	assert.ErrorIs(t, err, slotflow.ErrNoGraph)
}

func TestHandle_FreshConversation(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	eng, err := slotflow.New(counterGraph(t), slotflow.WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	st, diff, err := eng.Handle(context.Background(), "conv-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Turn)
	assert.Equal(t, "hello", st.UserMessage)
	assert.Equal(t, at, st.UpdatedAt)
	assert.Equal(t, []domain.Turn{{Role: domain.RoleUser, Content: "hello"}}, st.History)

	assert.Equal(t, map[string]any{"count": 1}, diff.Slots)
	assert.Equal(t, []domain.Turn{{Role: domain.RoleUser, Content: "hello"}}, diff.History)

	stored, err := eng.Conversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Slots["count"])
}

func TestHandle_BookingConversation(t *testing.T) {
	eng, outbox := bookingEngine(t)
	ctx := context.Background()

	st, _, err := eng.Handle(ctx, "919876543210", "Hi, I'm Ravi Kumar")
	require.NoError(t, err)
	assert.Equal(t, flows.StepServiceSelection, st.CurrentStep)
	assert.False(t, st.ShouldProceed)
	sent := outbox.Drain("919876543210")
	require.Len(t, sent, 2)
	assert.Equal(t, "Nice to meet you, Ravi!", sent[0])

	st, diff, err := eng.Handle(ctx, "919876543210", "9")
	require.NoError(t, err)
	assert.Equal(t, flows.StepServiceSelection, st.CurrentStep)
	assert.Equal(t, "Please reply with a number from 1 to 3", diff.Response)
	outbox.Drain("919876543210")

	st, diff, err = eng.Handle(ctx, "919876543210", "3")
	require.NoError(t, err)
	assert.Empty(t, st.CurrentStep)
	assert.True(t, st.ShouldProceed)
	require.NotNil(t, diff.CurrentStep)
	assert.Equal(t, "", *diff.CurrentStep)
	assert.Contains(t, diff.Slots, flows.SelectedServicePath)
	assert.Contains(t, st.Response, "*Interior Detailing*")
	// user, greeting, catalog; user, retry prompt; user, confirmation
	assert.Len(t, st.History, 7)
}

func TestHandle_SerializesPerConversation(t *testing.T) {
	eng, err := slotflow.New(counterGraph(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := eng.Handle(context.Background(), "conv-1", fmt.Sprintf("msg %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, err := eng.Conversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 20, st.Turn)
	assert.Equal(t, 20, st.Slots["count"])
	assert.Len(t, st.History, 20)
}

func TestHandle_RaisedErrorStillSaves(t *testing.T) {
	boom := errors.New("boom")
	b := graph.New()
	b.Add(nodes.Func("tag", func(_ context.Context, st *domain.State) error {
		st.AddError("api_call_failed_vehicles")
		return nil
	})).Go("explode")
	b.Add(nodes.Func("explode", func(context.Context, *domain.State) error {
		return &nodes.NodeError{Node: "explode", Tag: "api_call_failed_vehicles", Err: boom}
	}))
	g, err := b.Build()
	require.NoError(t, err)

	var events []*domain.TurnEvent
	eng, err := slotflow.New(g, slotflow.WithLifecycleHooks(domain.LifecycleHooks{
		OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) { events = append(events, e) },
	}))
	require.NoError(t, err)

	st, diff, err := eng.Handle(context.Background(), "conv-1", "go")
	require.ErrorIs(t, err, boom)
	var nodeErr *nodes.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "explode", nodeErr.Node)
	require.NotNil(t, st)
	assert.Equal(t, []string{"api_call_failed_vehicles"}, diff.Errors)

	stored, err := eng.Conversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.True(t, stored.HasError("api_call_failed_vehicles"))

	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, boom)
}

func TestHandle_RejectsInput(t *testing.T) {
	eng, err := slotflow.New(counterGraph(t), slotflow.WithMaxInputSize(8))
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = eng.Handle(ctx, "conv-1", strings.Repeat("a", 9))
	assert.ErrorIs(t, err, slotflow.ErrInputTooLarge)

	_, _, err = eng.Handle(ctx, "conv-1", "\xff")
	assert.ErrorIs(t, err, slotflow.ErrInvalidUTF8)

	_, _, err = eng.Handle(ctx, "../etc", "hi")
	assert.ErrorIs(t, err, domain.ErrInvalidConversationID)

	_, err = eng.Conversation(ctx, "conv-1")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestHandle_StripsControlCharacters(t *testing.T) {
	eng, err := slotflow.New(counterGraph(t))
	require.NoError(t, err)

	st, _, err := eng.Handle(context.Background(), "conv-1", "hi\x1b[31m there\x00\n")
	require.NoError(t, err)
	assert.Equal(t, "hi[31m there\n", st.UserMessage)
}

func TestHandle_PausedTurnEvent(t *testing.T) {
	var paused []bool
	eng, _ := bookingEngine(t, slotflow.WithLifecycleHooks(domain.LifecycleHooks{
		OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) { paused = append(paused, e.Paused) },
	}))

	_, _, err := eng.Handle(context.Background(), "conv-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, paused)
}

func TestResetAndConversations(t *testing.T) {
	eng, err := slotflow.New(counterGraph(t))
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		_, _, err := eng.Handle(ctx, id, "hi")
		require.NoError(t, err)
	}
	ids, err := eng.Conversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, eng.Reset(ctx, "a"))
	_, err = eng.Conversation(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	st, _, err := eng.Handle(ctx, "a", "again")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Turn)
}
