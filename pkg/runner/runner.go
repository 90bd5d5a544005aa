package runner

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/prompt"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/trigger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Runner turns tool metadata into an agent invocation and relays the result.
type Runner struct {
	relay       *relay.Relay
	history     *History
	interceptor Interceptor
	metrics     Metrics
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	tracer      trace.Tracer
	maxInput    int
	production  bool
}

// New creates a Runner in front of agent.
func New(agent ports.Agent, opts ...Option) *Runner {
	r := &Runner{
		interceptor: AutoApprove(),
		metrics:     nopMetrics{},
		logger:      logging.NewNop(),
		tracer:      otel.Tracer("weave/runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.relay = relay.New(agent,
		relay.WithLogger(r.logger),
		relay.WithTracer(r.tracer),
		relay.WithHooks(r.relayHooks()),
		relay.WithProduction(r.production),
	)
	return r
}

// History returns the configured chat history, if any.
func (r *Runner) History() *History {
	return r.history
}

// Request is a single tool run.
type Request struct {
	Metadata  domain.ToolMetadata
	Mode      relay.Mode
	ChatID    string
	SessionID string
}

// RunOptions configures RunGraph.
type RunOptions struct {
	Mode      relay.Mode
	ChatID    string
	SessionID string
}

// Result describes a finished run.
type Result struct {
	SessionID   string
	GraphID     string
	NodeID      string
	Instruction string
	Status      domain.NodeStatus

	// Outcome is set in streaming mode.
	Outcome *relay.Outcome
	// Messages is set in buffered mode.
	Messages []domain.Message
}

// Chat runs req against the agent. In streaming mode output goes to sink,
// which is always closed; buffered mode returns the cleaned messages and
// only closes sink.
//
// The error is set when the run could not start (ValidationError,
// NotFoundError, InitializationError) or, in buffered mode, when the agent
// failed. A streaming failure after the first event is reported through
// Result.Status and Result.Outcome.
func (r *Runner) Chat(ctx context.Context, req Request, sink relay.Sink) (*Result, error) {
	return r.run(ctx, req, sink, "", "")
}

// RunGraph triggers the first worker node of store and settles its status
// exactly once when the run ends.
func (r *Runner) RunGraph(ctx context.Context, store *graph.Store, opts RunOptions, sink relay.Sink) (*Result, error) {
	inv, err := trigger.TriggerRun(store.Snapshot())
	if err != nil {
		closeSink(sink)
		return nil, err
	}
	if err := store.StartRun(inv.NodeID); err != nil {
		closeSink(sink)
		return nil, err
	}

	res, err := r.run(ctx, Request{
		Metadata:  inv.Metadata,
		Mode:      opts.Mode,
		ChatID:    opts.ChatID,
		SessionID: opts.SessionID,
	}, sink, inv.GraphID, inv.NodeID)

	settle := store.MarkSuccess
	if err != nil || res.Status != domain.StatusSuccess {
		settle = store.MarkError
	}
	if serr := settle(inv.NodeID); serr != nil {
		r.logger.Warn("failed to settle node status", "graph_id", inv.GraphID, "node_id", inv.NodeID, "err", serr)
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, req Request, sink relay.Sink, graphID, nodeID string) (*Result, error) {
	if req.Mode == "" {
		req.Mode = relay.ModeStreaming
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	streaming := req.Mode == relay.ModeStreaming

	ctx, span := r.tracer.Start(ctx, "Runner.Run", trace.WithAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.String("tool.name", req.Metadata.ToolName),
		attribute.String("run.mode", string(req.Mode)),
		attribute.String("graph.id", graphID),
		attribute.String("node.id", nodeID),
	))
	defer span.End()

	fail := func(err error, fallback domain.ErrorKind) (*Result, error) {
		closeSink(sink)
		typed := domain.Classify(err, fallback)
		span.RecordError(typed)
		span.SetStatus(codes.Error, typed.Message)
		return &Result{SessionID: req.SessionID, GraphID: graphID, NodeID: nodeID, Status: domain.StatusError}, typed
	}

	if streaming && sink == nil {
		sink = relay.NewWriterSink(io.Discard)
	}

	meta, err := r.prepare(ctx, req.Metadata)
	if err != nil {
		return fail(err, domain.KindValidation)
	}

	var prior []domain.Message
	if req.ChatID != "" {
		if r.history == nil {
			return fail(domain.NewError(domain.KindValidation, "chat history is not enabled", nil), domain.KindValidation)
		}
		prior, err = r.history.Messages(ctx, req.ChatID)
		if err != nil {
			return fail(err, domain.KindInitialization)
		}
	}

	instruction := prompt.RenderInstruction(meta)
	user := domain.Message{ID: uuid.NewString(), Role: domain.RoleUser, Content: instruction}
	agentReq := domain.AgentRequest{Messages: append(prior, user)}

	res := &Result{
		SessionID:   req.SessionID,
		GraphID:     graphID,
		NodeID:      nodeID,
		Instruction: instruction,
	}
	start := time.Now()
	ev := &domain.RunEvent{
		Timestamp: start,
		GraphID:   graphID,
		NodeID:    nodeID,
		ToolName:  meta.ToolName,
		Streaming: streaming,
	}
	if r.hooks.OnRunStart != nil {
		r.hooks.OnRunStart(ctx, ev)
	}
	r.logger.Info("run started", "session_id", req.SessionID, "tool_name", meta.ToolName, "mode", req.Mode, "node_id", nodeID)

	var runErr error
	var reply string
	if streaming {
		out, err := r.relay.Stream(ctx, req.SessionID, agentReq, sink)
		if err != nil {
			runErr = err
			res.Status = domain.StatusError
		} else {
			res.Outcome = out
			res.Status = out.Status
			reply = out.Output
			r.metrics.RelayFinished(out.Chunks, out.Bytes)
			if out.Err != nil {
				span.RecordError(out.Err)
				span.SetStatus(codes.Error, out.Err.Error())
			}
		}
	} else {
		closeSink(sink)
		msgs, err := r.relay.Complete(ctx, agentReq)
		if err != nil {
			runErr = err
			res.Status = domain.StatusError
		} else {
			res.Messages = msgs
			res.Status = domain.StatusSuccess
			reply = assistantText(msgs)
		}
	}
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}

	if req.ChatID != "" {
		entries := []domain.Message{user}
		if reply != "" {
			entries = append(entries, domain.Message{Role: domain.RoleAssistant, Content: reply})
		}
		// The client may be gone; history is still recorded.
		if err := r.history.Append(context.WithoutCancel(ctx), req.ChatID, entries...); err != nil {
			r.logger.Warn("failed to append chat history", "chat_id", req.ChatID, "err", err)
		}
	}

	elapsed := time.Since(start)
	r.metrics.RunFinished(meta.ToolName, res.Status, string(req.Mode), elapsed)
	ev.Outcome = res.Status
	ev.Duration = elapsed
	ev.Err = runErr
	if ev.Err == nil && res.Outcome != nil {
		ev.Err = res.Outcome.Err
	}
	if r.hooks.OnRunEnd != nil {
		r.hooks.OnRunEnd(ctx, ev)
	}
	r.logger.Info("run finished", "session_id", req.SessionID, "tool_name", meta.ToolName, "status", res.Status, "duration", elapsed)

	return res, runErr
}

// prepare validates and sanitises metadata, then consults the interceptor.
func (r *Runner) prepare(ctx context.Context, meta domain.ToolMetadata) (domain.ToolMetadata, error) {
	if err := meta.Validate(); err != nil {
		return meta, err
	}
	meta, err := sanitizeMetadata(meta, r.maxInput)
	if err != nil {
		return meta, err
	}
	if r.interceptor != nil {
		if err := r.interceptor(ctx, meta); err != nil {
			return meta, err
		}
	}
	return meta, nil
}

func (r *Runner) relayHooks() domain.LifecycleHooks {
	user := r.hooks
	return domain.LifecycleHooks{
		OnToolStart: func(ctx context.Context, ev *domain.ToolEvent) {
			r.metrics.ToolAnnounced(ev.ToolName)
			if user.OnToolStart != nil {
				user.OnToolStart(ctx, ev)
			}
		},
		OnToolResult: func(ctx context.Context, ev *domain.ToolEvent) {
			if ev.TxHash != "" {
				r.metrics.TransactionAnnounced()
			}
			if user.OnToolResult != nil {
				user.OnToolResult(ctx, ev)
			}
		},
	}
}

func assistantText(msgs []domain.Message) string {
	var out string
	for _, m := range msgs {
		if m.Role != domain.RoleAssistant || m.Content == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

func closeSink(sink relay.Sink) {
	if sink != nil {
		_ = sink.Close()
	}
}
