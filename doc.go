/*
Package slotflow is a workflow engine for multi-turn conversational data collection.

A conversation is a persisted State: history, collected slots, error tags and a
step marker. Each inbound message runs a graph of small atomic nodes over that
state. Nodes extract values, validate records, branch on confidence, look back
through history, merge records, call external services and send messages.
A node that needs the user's answer pauses the workflow at a named step; the
next message for the conversation resumes it there.

# Concept

Nodes never abort a conversation. A failure becomes an error tag on the state
(for example "extraction_failed_customer.first_name") and the graph decides
where to go next. Only nodes explicitly configured to raise return an error,
and the state is saved regardless.

Invocations for the same conversation are serialized. Different conversations
run concurrently.

# Key Features

  - Atomic nodes: extract, validate, gate, scan, merge, call, dispatch, transform, condition.
  - Node groups: resume routing and a step state machine for numbered selections.
  - Confidence-arbitrated merges: an acknowledgement like "thanks" never overwrites a captured name.
  - Pluggable capabilities: any function can be an extractor, validator or transport.
  - State stores: memory, JSON files, SQLite and Redis, with encryption and PII masking middleware.
  - Observability: slog logging and Prometheus metrics through lifecycle hooks.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/slotflow"
		"github.com/aretw0/slotflow/pkg/adapters/memory"
		"github.com/aretw0/slotflow/pkg/flows"
	)

	func main() {
		outbox := memory.NewOutbox()
		g, err := flows.NewBooking(flows.BookingConfig{
			Transport: outbox,
			Catalog:   flows.CatalogRequest("https://erp.example/api/services"),
		})
		if err != nil {
			log.Fatal(err)
		}

		eng, err := slotflow.New(g)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		state, _, err := eng.Handle(ctx, "919876543210", "Hi, I'm Ravi")
		if err != nil {
			log.Fatal(err)
		}
		for _, msg := range outbox.Drain(state.ConversationID) {
			fmt.Println(msg)
		}
	}
*/
package slotflow
