/*
Package graph wires nodes into a workflow and drives one invocation through it.

A graph is built with a fluent builder, much like a hand-written state machine:

	b := graph.New()

	b.Add(extractName).Go("name_gate")
	b.Add(nameGate).
		When(graph.Decision("name_gate", nodes.DecisionLow), "scan_name").
		Go("merge_name")
	b.Add(scanName).Go("merge_name")
	b.Add(mergeName).Go(graph.END)

	b.Entry("extract_name")
	b.Resume("awaiting_service_selection", "service_selection")

	g, err := b.Build()

Run starts at the entry node, or at the node registered for the state's
current step when the conversation is paused. It stops at END, as soon as a
node clears should_proceed, or when a node returns an error.
*/
package graph
