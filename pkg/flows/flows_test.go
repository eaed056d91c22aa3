package flows

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/graph"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceOptions() []any {
	return []any{
		map[string]any{"product_name": "Basic Wash", "base_price": 299.0},
		map[string]any{"product_name": "Premium Wash", "base_price": 499.0},
	}
}

func TestSelector(t *testing.T) {
	sel, err := NewSelector(SelectionConfig{
		Options:  "service_options",
		Selected: "selected_service",
		Error:    "selection_error",
		LabelKey: "product_name",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr string
	}{
		{name: "number", reply: "2", want: "Premium Wash"},
		{name: "decorated number", reply: " #1. ", want: "Basic Wash"},
		{name: "label", reply: "premium wash", want: "Premium Wash"},
		{name: "out of range", reply: "3", wantErr: "Please reply with a number from 1 to 2"},
		{name: "zero", reply: "0", wantErr: "Please reply with a number from 1 to 2"},
		{name: "free text", reply: "the cheap one", wantErr: "Please reply with a number from 1 to 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := domain.NewState("conv-1")
			st.Slots["service_options"] = serviceOptions()
			st.BeginTurn(tt.reply)

			ok, err := sel.Select(context.Background(), st)
			require.NoError(t, err)
			if tt.wantErr != "" {
				assert.False(t, ok)
				assert.Equal(t, tt.wantErr, st.Slots["selection_error"])
				assert.Len(t, st.Slots["service_options"], 2)
				assert.NotContains(t, st.Slots, "selected_service")
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, st.Slots["selected_service"].(map[string]any)["product_name"])
			assert.Empty(t, st.Slots["service_options"])
			assert.NotContains(t, st.Slots, "selection_error")
		})
	}
}

func TestSelector_NoOptions(t *testing.T) {
	sel, err := NewSelector(SelectionConfig{Options: "opts", Selected: "sel", Error: "err"})
	require.NoError(t, err)
	st := domain.NewState("conv-1")
	st.BeginTurn("1")

	ok, err := sel.Select(context.Background(), st)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, st.Slots["err"])
}

func TestErrorMessage(t *testing.T) {
	b := ErrorMessage("selection_error", "")
	st := domain.NewState("conv-1")

	msg, err := b.BuildMessage(st)
	require.NoError(t, err)
	assert.Equal(t, DefaultSelectionError, msg)

	st.Slots["selection_error"] = "Please reply with a number from 1 to 4"
	msg, err = b.BuildMessage(st)
	require.NoError(t, err)
	assert.Equal(t, "Please reply with a number from 1 to 4", msg)
}

func TestCatalogMessage(t *testing.T) {
	st := domain.NewState("conv-1")
	st.Slots["service_options"] = []any{
		map[string]any{"product_name": "Basic Wash", "base_price": 299.0, "description": "Exterior wash"},
		map[string]any{"product_name": "Premium Wash", "base_price": 499, "description": strings.Repeat("x", 90)},
	}

	msg, err := CatalogMessage("service_options").BuildMessage(st)
	require.NoError(t, err)
	assert.Equal(t, "Here are the available services for your vehicle:\n\n"+
		"1. *Basic Wash* - ₹299\n   Exterior wash\n\n"+
		"2. *Premium Wash* - ₹499\n   "+strings.Repeat("x", 80)+"...\n\n"+
		"Please reply with the service number you'd like to book, or ask me for more details about any service.", msg)

	msg, err = CatalogMessage("missing").BuildMessage(st)
	require.NoError(t, err)
	assert.Equal(t, "Sorry, no services are available for your vehicle type at the moment.", msg)
}

func TestUnwrapServices(t *testing.T) {
	list := []any{map[string]any{"product_name": "Basic Wash"}}
	for name, body := range map[string]any{
		"message.services": map[string]any{"message": map[string]any{"services": list}},
		"services":         map[string]any{"services": list},
		"data.services":    map[string]any{"data": map[string]any{"services": list}},
		"message list":     map[string]any{"message": list},
		"bare list":        list,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := UnwrapServices.Transform(body, nil)
			require.NoError(t, err)
			assert.Equal(t, list, got)
		})
	}

	_, err := UnwrapServices.Transform(map[string]any{"message": "maintenance"}, nil)
	assert.ErrorIs(t, err, ErrNoServices)
}

func TestCatalogRequest(t *testing.T) {
	st := domain.NewState("conv-1")
	req, err := CatalogRequest("http://erp/services").BuildRequest(st)
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Empty(t, req.Query)

	st.Slots["vehicle"] = map[string]any{"type": "Hatchback"}
	req, err = CatalogRequest("http://erp/services").BuildRequest(st)
	require.NoError(t, err)
	assert.Equal(t, "Hatchback", req.Query.Get("vehicle_type"))
}

func TestLoadCatalog(t *testing.T) {
	services, err := LoadCatalog(strings.NewReader(`
- product_name: Basic Wash
  base_price: 299
- product_name: Ceramic Coating
  base_price: 14999
  description: Nine month protection
`))
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, Service{Name: "Ceramic Coating", Price: 14999, Description: "Nine month protection"}, services[1])

	_, err = LoadCatalog(strings.NewReader("product_name: [unclosed"))
	assert.Error(t, err)
}

type conversation struct {
	t      *testing.T
	g      *graph.Graph
	outbox *memory.Outbox
	st     *domain.State
}

func newBooking(t *testing.T) *conversation {
	t.Helper()
	outbox := memory.NewOutbox()
	g, err := NewBooking(BookingConfig{
		Transport: outbox,
		Catalog:   CatalogRequest("http://catalog.local/services"),
		Doer:      StaticCatalog{Services: DefaultServices},
	})
	require.NoError(t, err)
	return &conversation{t: t, g: g, outbox: outbox, st: domain.NewState("conv-1")}
}

func (c *conversation) say(msg string) []string {
	c.t.Helper()
	c.st.BeginTurn(msg)
	require.NoError(c.t, c.g.Run(context.Background(), c.st))
	return c.outbox.Drain(c.st.ConversationID)
}

func TestBooking_NameThenService(t *testing.T) {
	c := newBooking(t)

	sent := c.say("Hi, I'm Ravi Kumar")
	require.Len(t, sent, 2)
	assert.Equal(t, "Nice to meet you, Ravi!", sent[0])
	assert.True(t, strings.HasPrefix(sent[1], "Here are the available services"))
	assert.Equal(t, StepServiceSelection, c.st.CurrentStep)
	assert.False(t, c.st.ShouldProceed)
	customer := c.st.Slots["customer"].(map[string]any)
	assert.Equal(t, "Ravi", customer["first_name"])
	assert.Equal(t, "Kumar", customer["last_name"])

	sent = c.say("7")
	assert.Equal(t, []string{"Please reply with a number from 1 to 3"}, sent)
	assert.Equal(t, StepServiceSelection, c.st.CurrentStep)

	sent = c.say("2")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "*Premium Wash*")
	assert.Equal(t, "", c.st.CurrentStep)
	assert.True(t, c.st.ShouldProceed)
	assert.Equal(t, "Premium Wash", c.st.Slots["selected_service"].(map[string]any)["product_name"])
	assert.Equal(t, "Ravi", c.st.Slots["customer"].(map[string]any)["first_name"])
}

func TestBooking_PromptsForNameAndResumes(t *testing.T) {
	c := newBooking(t)

	sent := c.say("hello")
	assert.Equal(t, []string{"Before we continue, may I have your name?"}, sent)
	assert.Equal(t, StepName, c.st.CurrentStep)
	assert.True(t, c.st.HasError(domain.TagExtractionFailed(NameCandidatePath)))
	assert.True(t, c.st.HasError(domain.TagScanFailed(NameCandidatePath)))

	sent = c.say("Sneha")
	require.Len(t, sent, 2)
	assert.Equal(t, "Nice to meet you, Sneha!", sent[0])
	assert.Equal(t, StepServiceSelection, c.st.CurrentStep)
	assert.Empty(t, c.st.Errors)
}

func TestBooking_NameRecoveredFromHistory(t *testing.T) {
	c := newBooking(t)
	c.st.AppendTurn(domain.RoleUser, "my name is Arjun")
	c.st.AppendTurn(domain.RoleAssistant, "What would you like to do today?")

	sent := c.say("I want to book a car wash")
	require.Len(t, sent, 2)
	assert.Equal(t, "Nice to meet you, Arjun!", sent[0])
	customer := c.st.Slots["customer"].(map[string]any)
	assert.Equal(t, 0.5, customer["confidence"])
}

func TestBooking_ResolvedSelectionIsNotAskedAgain(t *testing.T) {
	c := newBooking(t)
	c.say("I'm Ravi")
	c.say("1")

	assert.Equal(t, true, c.st.Slots[BookingConfirmedPath])

	sent := c.say("thanks")
	assert.Empty(t, sent)
	assert.Empty(t, c.st.CurrentStep)
	assert.Equal(t, "Ravi", c.st.Slots["customer"].(map[string]any)["first_name"])
}

func TestBooking_FailedConfirmationIsRetried(t *testing.T) {
	var fail bool
	out := memory.NewOutbox()
	transport := ports.TransportFunc(func(ctx context.Context, id, text string) error {
		if fail {
			return errors.New("gateway down")
		}
		return out.Send(ctx, id, text)
	})
	g, err := NewBooking(BookingConfig{
		Transport: transport,
		Catalog:   CatalogRequest("http://catalog.local/services"),
		Doer:      StaticCatalog{Services: DefaultServices},
	})
	require.NoError(t, err)

	ctx := context.Background()
	st := domain.NewState("c1")
	turn := func(msg string) {
		st.BeginTurn(msg)
		require.NoError(t, g.Run(ctx, st))
	}

	turn("I'm Ravi")
	fail = true
	turn("1")
	assert.Contains(t, st.Errors, domain.TagSendFailed)
	assert.NotContains(t, st.Slots, BookingConfirmedPath)

	fail = false
	out.Drain("c1")
	turn("are we booked?")
	sent := out.Drain("c1")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "*Basic Wash*")
	assert.Equal(t, true, st.Slots[BookingConfirmedPath])
}

func TestNewServiceSelection_RequiresCollaborators(t *testing.T) {
	_, err := NewServiceSelection("services", ServiceSelectionConfig{})
	assert.Error(t, err)
}
