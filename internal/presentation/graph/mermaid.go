package graph

import (
	"fmt"
	"sort"
	"strings"

	flowgraph "github.com/aretw0/slotflow/pkg/graph"
)

// endID is the terminal pseudo-node drawn for edges to END.
const endID = "END"

// Overlay highlights a conversation's position on the graph.
type Overlay struct {
	// CurrentNode is the node the next reply resumes at.
	CurrentNode string
}

// GenerateMermaid produces a Mermaid flowchart of g.
// Shapes:
//   - Entry: ((Circle))
//   - Resume target (waits for a reply): [/Parallelogram/]
//   - Default: [Rectangle]
//
// Conditional edges carry their label; default edges are dotted when the
// node also has conditions.
func GenerateMermaid(g *flowgraph.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	waits := make(map[string][]string)
	for step, node := range g.ResumePoints() {
		waits[node] = append(waits[node], step)
	}

	for _, name := range g.Nodes() {
		opener, closer := "[", "]"
		switch {
		case name == g.Entry():
			opener, closer = "((", "))"
		case len(waits[name]) > 0:
			opener, closer = "[/", "/]"
		}
		label := name
		if steps := waits[name]; len(steps) > 0 {
			sort.Strings(steps)
			label = fmt.Sprintf("%s <br/> ⏸ %s", name, strings.Join(steps, ", "))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(name), opener, label, closer)
	}

	conditional := make(map[string]bool)
	usesEnd := false
	for _, e := range g.Edges() {
		from := sanitizeMermaidID(e.From)
		to := sanitizeMermaidID(e.To)
		if e.To == flowgraph.END {
			to = endID
			usesEnd = true
		}
		switch {
		case !e.Default:
			conditional[e.From] = true
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, strings.ReplaceAll(e.Label, "\"", "'"), to)
		case conditional[e.From]:
			fmt.Fprintf(&sb, "    %s -.-> %s\n", from, to)
		default:
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		}
	}
	if usesEnd {
		fmt.Fprintf(&sb, "    %s(((\"end\")))\n", endID)
	}

	if overlay != nil && overlay.CurrentNode != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
