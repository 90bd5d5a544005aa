package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/muesli/termenv"
)

var statusColors = map[domain.NodeStatus]string{
	domain.StatusIdle:    "#9ca3af",
	domain.StatusRunning: "#fbbf24",
	domain.StatusSuccess: "#34d399",
	domain.StatusError:   "#f87171",
}

// PrintStatus writes a coloured status line for a node to w.
// Colours are dropped when w is not a terminal.
func PrintStatus(w io.Writer, nodeID string, st domain.NodeStatus) {
	out := termenv.NewOutput(w)
	label := out.String(string(st)).Foreground(out.Color(statusColors[st])).Bold()
	fmt.Fprintf(w, ">>> node %s: %s\n", nodeID, label)
}
