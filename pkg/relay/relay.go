// Package relay turns an agent's event sequence into an ordered, display
// ready text stream.
//
// A Relay runs one consumer per invocation. Content is forwarded in arrival
// order; tool starts are announced once per tool, a successful transaction is
// announced once per session, and bold markdown around transaction hashes and
// position ids is removed. Upstream failures end the stream with a single
// fallback line without retracting what was already delivered.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = l
	}
}

// WithTracer sets the tracer used for relay spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Relay) {
		r.tracer = t
	}
}

// WithHooks registers tool lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Relay) {
		r.hooks = h
	}
}

// WithProduction hides stack traces from initialization errors.
func WithProduction(production bool) Option {
	return func(r *Relay) {
		r.production = production
	}
}

// Relay consumes agent invocations.
type Relay struct {
	agent      ports.Agent
	logger     *slog.Logger
	tracer     trace.Tracer
	hooks      domain.LifecycleHooks
	production bool
}

// New creates a relay in front of agent.
func New(agent ports.Agent, opts ...Option) *Relay {
	r := &Relay{
		agent:  agent,
		logger: logging.NewNop(),
		tracer: otel.Tracer("weave/relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome summarises a finished streaming run.
type Outcome struct {
	SessionID string
	Status    domain.NodeStatus
	Output    string
	Tools     []string
	TxHash    string
	Chunks    int
	Bytes     int
	// Err is a *domain.Error when Status is error.
	Err error
}

// Stream starts an invocation and forwards its output to sink until the
// upstream ends, fails or ctx is cancelled. The sink is always closed.
//
// The returned error is only set when the invocation could not be
// established; it is an InitializationError and nothing was written to sink.
// Failures after that point are reported through Outcome.
func (r *Relay) Stream(ctx context.Context, sessionID string, req domain.AgentRequest, sink Sink) (*Outcome, error) {
	defer sink.Close()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx, span := r.tracer.Start(ctx, "Relay.Stream", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	upCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := r.open(upCtx, req)
	if err != nil {
		initErr := r.initError(err)
		span.RecordError(initErr)
		span.SetStatus(codes.Error, initErr.Message)
		r.logger.Error("agent invocation failed to start", "session_id", sessionID, "error", err)
		return nil, initErr
	}

	sess := NewSession(sessionID, ModeStreaming)
	sess.state = StateOpened
	r.logger.Debug("relay opened", "session_id", sessionID)

	out := r.drain(ctx, sess, events, sink)
	sess.state = StateClosed

	span.SetAttributes(
		attribute.Int("relay.chunks", out.Chunks),
		attribute.Int("relay.bytes", out.Bytes),
		attribute.String("relay.status", string(out.Status)),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	}
	r.logger.Debug("relay closed", "session_id", sessionID, "status", out.Status, "chunks", out.Chunks)
	return out, nil
}

func (r *Relay) open(ctx context.Context, req domain.AgentRequest) (events <-chan domain.AgentEvent, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("agent panicked: %v", rec)
		}
	}()
	if r.agent == nil {
		return nil, ports.ErrAgentNotReady
	}
	events, err = r.agent.Stream(ctx, req)
	if err == nil && events == nil {
		err = errors.New("agent returned no event stream")
	}
	return events, err
}

func (r *Relay) drain(ctx context.Context, sess *Session, events <-chan domain.AgentEvent, sink Sink) (out *Outcome) {
	out = &Outcome{SessionID: sess.ID, Status: domain.StatusSuccess}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("relay recovered from panic", "session_id", sess.ID, "panic", rec)
			r.write(ctx, sess, sink, "\n\n"+FallbackLine)
			out.Status = domain.StatusError
			out.Err = domain.NewError(domain.KindUpstreamStream, "stream processing failed", fmt.Errorf("%v", rec))
		}
		out.Output = sess.Output()
		out.Tools = sess.ToolsUsed()
		out.TxHash = sess.TxHash()
		out.Chunks = sess.Chunks()
		out.Bytes = len(out.Output)
	}()

	fail := func(msg string, cause error) *Outcome {
		out.Status = domain.StatusError
		out.Err = domain.NewError(domain.KindUpstreamStream, msg, cause)
		return out
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("client disconnected", "session_id", sess.ID)
			return fail("client disconnected", ctx.Err())

		case ev, ok := <-events:
			if ctx.Err() != nil {
				r.logger.Info("client disconnected", "session_id", sess.ID)
				return fail("client disconnected", ctx.Err())
			}
			if !ok {
				for _, f := range sess.Drain() {
					if err := r.write(ctx, sess, sink, f); err != nil {
						return fail("sink unavailable", err)
					}
				}
				return out
			}

			st := sess.feed(ev)
			r.notify(ctx, st)
			for _, f := range st.fragments {
				if err := r.write(ctx, sess, sink, f); err != nil {
					return fail("sink unavailable", err)
				}
			}
			if st.failed {
				r.logger.Warn("upstream stream failed", "session_id", sess.ID, "error", ev.Error)
				return fail("upstream stream failed", errors.New(ev.Error))
			}
			if st.done {
				return out
			}
		}
	}
}

func (r *Relay) write(ctx context.Context, sess *Session, sink Sink, fragment string) error {
	if fragment == "" {
		return nil
	}
	if err := sink.Write(ctx, fragment); err != nil {
		return err
	}
	sess.commit(fragment)
	return nil
}

func (r *Relay) notify(ctx context.Context, st step) {
	if st.toolStarted != "" && r.hooks.OnToolStart != nil {
		r.hooks.OnToolStart(ctx, &domain.ToolEvent{Timestamp: time.Now(), ToolName: st.toolStarted})
	}
	if (st.toolEnded != "" || st.txHash != "") && r.hooks.OnToolResult != nil {
		r.hooks.OnToolResult(ctx, &domain.ToolEvent{Timestamp: time.Now(), ToolName: st.toolEnded, TxHash: st.txHash})
	}
	if st.toolStarted != "" {
		trace.SpanFromContext(ctx).AddEvent("tool.start", trace.WithAttributes(attribute.String("tool.name", st.toolStarted)))
	}
	if st.txHash != "" {
		trace.SpanFromContext(ctx).AddEvent("transaction.announced", trace.WithAttributes(attribute.String("tx.hash", st.txHash)))
	}
}

// Complete runs the invocation without streaming and returns the cleaned
// messages.
func (r *Relay) Complete(ctx context.Context, req domain.AgentRequest) ([]domain.Message, error) {
	ctx, span := r.tracer.Start(ctx, "Relay.Complete")
	defer span.End()

	msgs, err := r.complete(ctx, req)
	if err != nil {
		var typed *domain.Error
		switch {
		case errors.Is(err, ports.ErrAgentNotReady):
			typed = r.initError(err)
		case errors.As(err, &typed):
		default:
			typed = domain.NewError(domain.KindUpstreamStream, "agent completion failed", err)
		}
		span.RecordError(typed)
		span.SetStatus(codes.Error, typed.Message)
		r.logger.Error("agent completion failed", "error", err)
		return nil, typed
	}

	cleaned := CleanMessages(msgs)
	span.SetAttributes(attribute.Int("relay.messages", len(cleaned)))
	return cleaned, nil
}

func (r *Relay) complete(ctx context.Context, req domain.AgentRequest) (msgs []domain.Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("agent panicked: %v", rec)
		}
	}()
	if r.agent == nil {
		return nil, ports.ErrAgentNotReady
	}
	return r.agent.Complete(ctx, req)
}

func (r *Relay) initError(err error) *domain.Error {
	e := domain.NewError(domain.KindInitialization, "agent invocation could not be started", err)
	if !r.production {
		e.WithStack()
	}
	return e
}
