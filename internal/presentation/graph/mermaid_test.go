package graph_test

import (
	"context"
	"testing"

	"github.com/aretw0/slotflow/internal/presentation/graph"
	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/flows"
	flowgraph "github.com/aretw0/slotflow/pkg/graph"
	"github.com/aretw0/slotflow/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(name string) nodes.Node {
	return nodes.Func(name, func(context.Context, *domain.State) error { return nil })
}

func TestGenerateMermaid(t *testing.T) {
	b := flowgraph.New()
	b.Add(noop("start")).
		When(flowgraph.ConditionIs(true), "done").Label(`say "yes"`).
		Go("ask-name")
	b.Add(noop("ask-name")).Go("done")
	b.Add(noop("done"))
	b.Resume("awaiting_name", "ask-name")
	g, err := b.Build()
	require.NoError(t, err)

	out := graph.GenerateMermaid(g, &graph.Overlay{CurrentNode: "ask-name"})

	for _, want := range []string{
		"graph TD\n",
		`start(("start"))`,
		`ask_name[/"ask-name <br/> ⏸ awaiting_name"/]`,
		`done["done"]`,
		`start -- "say 'yes'" --> done`,
		"start -.-> ask_name",
		"ask_name --> done",
		"done --> END",
		`END((("end")))`,
		"class ask_name current;",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenerateMermaid_Booking(t *testing.T) {
	g, err := flows.NewBooking(flows.BookingConfig{
		Transport: memory.NewOutbox(),
		Catalog:   flows.CatalogRequest("http://catalog.local/services"),
		Doer:      flows.StaticCatalog{Services: flows.DefaultServices},
	})
	require.NoError(t, err)

	out := graph.GenerateMermaid(g, nil)
	assert.Contains(t, out, `has_name(("has_name"))`)
	assert.Contains(t, out, `has_name -- "name known" --> service_selection`)
	assert.Contains(t, out, "awaiting_service_selection")
	assert.NotContains(t, out, "Overlay Styles")
}
