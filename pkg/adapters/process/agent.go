// Package process runs the agent as a local executable.
//
// Each invocation starts the command with the JSON encoded request on
// stdin. In streaming mode (WEAVE_AGENT_MODE=stream) the process writes one
// JSON event per line to stdout; in complete mode it writes a single
// {"messages": [...]} document. The process is killed when the invocation's
// context is cancelled.
package process

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
)

// ModeEnv tells the process which protocol to speak.
const ModeEnv = "WEAVE_AGENT_MODE"

const maxEventSize = 1 << 20

// Agent implements ports.Agent on top of a local process.
type Agent struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = l
	}
}

// NewAgent creates a process agent.
func NewAgent(cfg Config, opts ...Option) *Agent {
	a := &Agent{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) command(ctx context.Context, mode string, req domain.AgentRequest) (*exec.Cmd, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent request: %w", err)
	}
	cmd := exec.CommandContext(ctx, a.cfg.Command, a.cfg.Args...)
	cmd.Dir = a.cfg.Dir
	cmd.Stdin = bytes.NewReader(payload)

	env := []string{ModeEnv + "=" + mode}
	for k, v := range a.cfg.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(cmd.Environ(), env...)
	return cmd, nil
}

// Stream implements ports.Agent.
func (a *Agent) Stream(ctx context.Context, req domain.AgentRequest) (<-chan domain.AgentEvent, error) {
	cmd, err := a.command(ctx, "stream", req)
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start agent process: %w", err)
	}
	a.logger.Debug("agent process started", "command", a.cfg.Command, "pid", cmd.Process.Pid)

	ch := make(chan domain.AgentEvent)
	go func() {
		defer close(ch)

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		failed := false
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var ev domain.AgentEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				a.logger.Warn("malformed agent event", "err", err)
				send(ctx, ch, domain.StreamError("malformed agent event"))
				failed = true
				break
			}
			if !send(ctx, ch, ev) {
				failed = true
				break
			}
		}
		if err := scanner.Err(); err != nil && !failed && ctx.Err() == nil {
			send(ctx, ch, domain.StreamError(err.Error()))
			failed = true
		}
		if failed {
			// Wait would block on a process stuck writing to the pipe.
			cmd.Process.Kill()
		}

		err := cmd.Wait()
		if failed || ctx.Err() != nil {
			return
		}
		if err != nil {
			a.logger.Warn("agent process failed", "err", err, "stderr", strings.TrimSpace(stderr.String()))
			send(ctx, ch, domain.StreamError(fmt.Sprintf("agent process failed: %v", err)))
		}
	}()
	return ch, nil
}

// Complete implements ports.Agent.
func (a *Agent) Complete(ctx context.Context, req domain.AgentRequest) ([]domain.Message, error) {
	cmd, err := a.command(ctx, "complete", req)
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("agent process failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var body struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(out, &body); err != nil {
		return nil, fmt.Errorf("failed to decode agent completion: %w", err)
	}
	return body.Messages, nil
}

func send(ctx context.Context, ch chan<- domain.AgentEvent, ev domain.AgentEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
