package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/weave/internal/logging"
	"golang.org/x/term"
)

// newLogger writes debug logs to stderr so they never mix with the
// relayed output on stdout.
func newLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug, logging.FormatText)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// terminalWidth returns the width of w when it is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80, true
	}
	return width, true
}
