package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/internal/presentation/tui"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/runner"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Path       string
	ConfigPath string
	Buffered   bool
	Watch      bool
	Debug      bool
	Quiet      bool
	// Options are passed to weave.New after the CLI defaults.
	Options []weave.Option
}

// Execute handles the run command, dispatching to a single run or watch mode.
func Execute(ctx context.Context, opts RunOptions, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	appOpts := opts.Options
	if opts.Debug {
		appOpts = append([]weave.Option{weave.WithLogger(newLogger(true))}, appOpts...)
	}
	app, err := weave.New(ctx, cfg, appOpts...)
	if err != nil {
		return err
	}
	defer app.Close()

	if !opts.Quiet {
		tui.PrintBanner(out)
	}
	if opts.Watch {
		return Watch(ctx, app, opts, out)
	}

	g, err := LoadGraph(ctx, opts.Path)
	if err != nil {
		return err
	}
	_, err = RunOnce(ctx, app, g, opts, out)
	return err
}

// RunOnce imports g into app and runs its worker node, writing the relayed
// output and status changes to out.
func RunOnce(ctx context.Context, app *weave.App, g *domain.Graph, opts RunOptions, out io.Writer) (*runner.Result, error) {
	store, err := app.Manager().Import(ctx, g)
	if err != nil {
		return nil, err
	}

	events, cancel := app.Manager().Hub().Subscribe(store.ID(), 16)
	done := make(chan struct{})
	var statusLines strings.Builder
	go func() {
		defer close(done)
		for ev := range events {
			if !opts.Quiet {
				tui.PrintStatus(&statusLines, ev.NodeID, ev.Status)
			}
		}
	}()

	mode := relay.ModeStreaming
	if opts.Buffered {
		mode = relay.ModeBuffered
	}
	printed := &statusWriter{out: out}
	res, runErr := app.Runner().RunGraph(ctx, store, runner.RunOptions{Mode: mode}, relay.NewWriterSink(printed))

	cancel()
	<-done

	if runErr == nil && opts.Buffered {
		if err := printMessages(out, res.Messages); err != nil {
			return res, err
		}
	}
	if printed.dirty {
		fmt.Fprintln(out)
	}
	io.WriteString(out, statusLines.String())
	if runErr != nil {
		return nil, runErr
	}
	if !opts.Quiet {
		printSystemMessage(out, "Finished %s with status %s.", res.NodeID, res.Status)
	}
	if res.Status == domain.StatusError && res.Outcome != nil && res.Outcome.Err != nil {
		return res, res.Outcome.Err
	}
	return res, nil
}

// statusWriter remembers whether the last write left the cursor mid-line.
type statusWriter struct {
	out   io.Writer
	dirty bool
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.dirty = p[len(p)-1] != '\n'
	}
	return w.out.Write(p)
}

func printMessages(out io.Writer, msgs []domain.Message) error {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role != domain.RoleAssistant || m.Content == "" {
			continue
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	text := b.String()

	if width, ok := terminalWidth(out); ok {
		render, err := tui.NewRenderer(width)
		if err == nil {
			rendered, err := render(text)
			if err == nil {
				text = rendered
			}
		}
	}
	_, err := io.WriteString(out, text)
	return err
}
