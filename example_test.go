package slotflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/flows"
)

// ExampleEngine_Handle runs the reference booking flow against a static catalog.
func ExampleEngine_Handle() {
	outbox := memory.NewOutbox()
	g, err := flows.NewBooking(flows.BookingConfig{
		Transport: outbox,
		Catalog:   flows.CatalogRequest("http://catalog.local/services"),
		Doer:      flows.StaticCatalog{Services: flows.DefaultServices},
	})
	if err != nil {
		log.Fatal(err)
	}
	engine, err := slotflow.New(g)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, _, err := engine.Handle(ctx, "919876543210", "Hi, I'm Ravi")
	if err != nil {
		log.Fatal(err)
	}
	sent := outbox.Drain(state.ConversationID)
	fmt.Println(sent[0])
	fmt.Println("Waiting at:", state.CurrentStep)

	state, _, err = engine.Handle(ctx, "919876543210", "2")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(state.Response)
	// Output:
	// Nice to meet you, Ravi!
	// Waiting at: awaiting_service_selection
	// Great choice! You selected *Premium Wash* (₹499). We'll confirm your booking shortly.
}
