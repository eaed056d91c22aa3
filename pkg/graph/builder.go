package graph

import (
	"fmt"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/nodes"
)

// END terminates a path.
const END = ""

// Cond selects a conditional edge.
type Cond func(st *domain.State) bool

type branch struct {
	cond  Cond
	to    string
	label string
}

type vertex struct {
	node     nodes.Node
	branches []branch
	next     string
}

// Builder manages the graph construction.
type Builder struct {
	vertices map[string]*vertex
	order    []string
	entry    string
	resume   map[string]string
	errs     []error
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		vertices: make(map[string]*vertex),
		resume:   make(map[string]string),
	}
}

// NodeBuilder configures the outgoing edges of one node.
type NodeBuilder struct {
	v *vertex
}

// Add registers n. The first node added becomes the entry unless Entry is called.
// Adding a second node with the same name is reported by Build.
func (b *Builder) Add(n nodes.Node) *NodeBuilder {
	name := n.Name()
	if _, ok := b.vertices[name]; ok {
		b.errs = append(b.errs, fmt.Errorf("duplicate node %q", name))
		return &NodeBuilder{v: b.vertices[name]}
	}
	v := &vertex{node: n}
	b.vertices[name] = v
	b.order = append(b.order, name)
	if b.entry == "" {
		b.entry = name
	}
	return &NodeBuilder{v: v}
}

// Entry sets the node a fresh invocation starts at.
func (b *Builder) Entry(name string) *Builder {
	b.entry = name
	return b
}

// Resume makes invocations arriving with current_step == step start at node.
func (b *Builder) Resume(step, node string) *Builder {
	b.resume[step] = node
	return b
}

// Go sets the default successor. END (or never calling Go) ends the path.
func (nb *NodeBuilder) Go(to string) *NodeBuilder {
	nb.v.next = to
	return nb
}

// When adds a conditional edge. Conditions are evaluated in declaration order
// and the first match wins; Go is the fallback.
func (nb *NodeBuilder) When(cond Cond, to string) *NodeBuilder {
	nb.v.branches = append(nb.v.branches, branch{cond: cond, to: to})
	return nb
}

// Label describes the most recently added conditional edge. It only affects
// introspection.
func (nb *NodeBuilder) Label(text string) *NodeBuilder {
	if n := len(nb.v.branches); n > 0 {
		nb.v.branches[n-1].label = text
	}
	return nb
}

// Build validates the edges and compiles the graph.
func (b *Builder) Build(opts ...Option) (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if len(b.vertices) == 0 {
		return nil, fmt.Errorf("graph has no nodes")
	}

	known := func(to, from string) error {
		if to == END {
			return nil
		}
		if _, ok := b.vertices[to]; !ok {
			return fmt.Errorf("%w: %q (referenced by %s)", ErrUnknownNode, to, from)
		}
		return nil
	}

	if err := known(b.entry, "entry"); err != nil {
		return nil, err
	}
	for step, to := range b.resume {
		if err := known(to, "resume "+step); err != nil {
			return nil, err
		}
	}
	for _, name := range b.order {
		v := b.vertices[name]
		if err := known(v.next, name); err != nil {
			return nil, err
		}
		for _, br := range v.branches {
			if br.cond == nil {
				return nil, fmt.Errorf("node %s: nil branch condition", name)
			}
			if err := known(br.to, name); err != nil {
				return nil, err
			}
		}
	}

	g := &Graph{
		vertices: b.vertices,
		order:    b.order,
		entry:    b.entry,
		resume:   b.resume,
	}
	g.apply(opts)
	return g, nil
}

// Decision matches when the named gate recorded decision.
func Decision(gate, decision string) Cond {
	return func(st *domain.State) bool { return st.Decisions[gate] == decision }
}

// ConditionIs matches the result of the most recent Condition node.
func ConditionIs(want bool) Cond {
	return func(st *domain.State) bool { return st.ConditionResult == want }
}

// HasError matches when tag was recorded during the current invocation.
func HasError(tag string) Cond {
	return func(st *domain.State) bool { return st.HasError(tag) }
}

// Has matches when the slot at path is present and non-empty.
func Has(path string) Cond {
	p := fieldpath.MustParse(path)
	return func(st *domain.State) bool { return fieldpath.Exists(st.Slots, p) }
}

// Not negates c.
func Not(c Cond) Cond {
	return func(st *domain.State) bool { return !c(st) }
}
