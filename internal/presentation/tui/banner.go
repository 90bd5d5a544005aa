package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the weave ASCII banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{" __      _____  __ ___   _____ ", "#818cf8"},
		{" \\ \\ /\\ / / _ \\/ _` \\ \\ / / _ \\", "#a78bfa"},
		{"  \\ V  V /  __/ (_| |\\ V /  __/", "#e879f9"},
		{"   \\_/\\_/ \\___|\\__,_| \\_/ \\___|", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
