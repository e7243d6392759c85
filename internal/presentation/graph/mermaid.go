package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
// All entries are node names.
type GraphOverlay struct {
	Calculated []string
	Stuck      []string
	Current    []string // active dialog nodes
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a graph.
// It applies semantic styling:
// - Dialog start: ((Circle))
// - Dialog choice: [/Parallelogram/]
// - Dialog branch and set: {Rhombus}
// - Source nodes: ([Stadium])
// - Default: [Rectangle]
// Data connections are labelled "out:in"; dialog transitions use thick arrows.
// It also applies overlay styles (Calculated/Stuck/Current) if provided.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range g.Nodes() {
		node, _ := g.Node(id)
		name := g.Name(id)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case node.Type() == dialog.TypeStart:
			opener, closer = "((", "))"
		case node.Type() == dialog.TypeChoice:
			opener, closer = "[/", "/]"
		case node.Type() == dialog.TypeBranch || node.Type() == dialog.TypeSet:
			opener, closer = "{", "}"
		case node.IsInput():
			opener, closer = "([", "])"
		}

		label := fmt.Sprintf("%s <br/> <small>%s</small>", escape(name), escape(node.Type()))
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, cid := range g.Connections() {
		c, _ := g.Connection(cid)
		from, _ := g.Port(c.From)
		to, _ := g.Port(c.To)
		src := sanitizeMermaidID(g.Name(from.Node))
		dst := sanitizeMermaidID(g.Name(to.Node))

		if from.Type == schema.Transition {
			if from.Name == dialog.PortNext {
				fmt.Fprintf(&sb, "    %s ==> %s\n", src, dst)
			} else {
				fmt.Fprintf(&sb, "    %s == \"%s\" ==> %s\n", src, escape(from.Name), dst)
			}
			continue
		}
		fmt.Fprintf(&sb, "    %s -- \"%s:%s\" --> %s\n", src, escape(from.Name), escape(to.Name), dst)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills regardless of theme.
		sb.WriteString("    classDef calculated fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef stuck fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		writeClass(&sb, g, overlay.Calculated, "calculated")
		writeClass(&sb, g, overlay.Stuck, "stuck")
		writeClass(&sb, g, overlay.Current, "current")
	}

	return sb.String()
}

// writeClass styles the named nodes, skipping duplicates and names not in g.
func writeClass(sb *strings.Builder, g *domain.Graph, names []string, class string) {
	seen := make(map[string]bool)
	for _, name := range names {
		if _, ok := g.Lookup(name); !ok || seen[name] {
			continue
		}
		seen[name] = true
		fmt.Fprintf(sb, "    class %s %s;\n", sanitizeMermaidID(name), class)
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
