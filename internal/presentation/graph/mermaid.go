package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/leadflow/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a flow definition.
// Shapes follow the node kind:
// - Start: ((Circle))
// - Action: [[Subroutine]]
// - Open input: [/Parallelogram/]
// - Choice: {Rhombus}
// - Plain: [Rectangle]
// Choice edges are labeled with the button title. Overlay styles are applied if provided.
func GenerateMermaid(def *domain.Definition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if def == nil {
		return sb.String()
	}

	for _, id := range def.Order {
		node := def.Nodes[id]
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == def.Start:
			opener, closer = "((", "))"
		case node.Kind == domain.KindAction:
			opener, closer = "[[", "]]"
		case node.Kind == domain.KindOpenInput:
			opener, closer = "[/", "/]"
		case node.Kind == domain.KindChoice:
			opener, closer = "{", "}"
		}

		label := node.ID
		if node.Action != "" {
			label = fmt.Sprintf("%s <br/> %s", node.ID, node.Action)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, c := range node.Choices {
			if c.Next == "" {
				continue
			}
			title := strings.ReplaceAll(c.Title, "\"", "'")
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, title, sanitizeMermaidID(c.Next))
		}
		if node.Next != "" {
			arrow := "-->"
			if node.Kind == domain.KindPlain {
				// Plain nodes never advance on their own.
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(node.Next))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
