package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart syntax string from a graph
// snapshot. It applies semantic styling:
// - Chat model: ((Circle))
// - Worker: [[Subroutine]]
// - Supervisor: {{Hexagon}}
// - Default: [Rectangle]
// Execution status recorded in the snapshot is rendered as class styles.
func GenerateMermaid(g *domain.Graph) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if g == nil {
		return sb.String()
	}

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeChatModel:
			opener, closer = "((", "))"
		case domain.NodeTypeWorker:
			opener, closer = "[[", "]]"
		case domain.NodeTypeSupervisor:
			opener, closer = "{{", "}}"
		}

		label := node.ID
		if name, _ := node.Data[domain.FieldWorkerName].(string); strings.TrimSpace(name) != "" {
			label = fmt.Sprintf("%s <br/> %s", node.ID, escapeLabel(name))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, e := range g.Edges {
		arrow := "-->"
		if e.SourceHandle == domain.HandleSupervisor || e.TargetHandle == domain.HandleSupervisor {
			arrow = "-. supervises .->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if len(g.Status) > 0 {
		sb.WriteString("\n    %% Status Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef running fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef success fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef error fill:#ffcdd2,stroke:#c62828,stroke-width:2px,color:#000;\n")

		ids := make([]string, 0, len(g.Status))
		for id := range g.Status {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			st := g.Status[id]
			if st == domain.StatusIdle || st == "" {
				continue
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(id), st)
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
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
