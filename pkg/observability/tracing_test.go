package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/aretw0/weave/pkg/adapters/agent"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/observability"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRunnerSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ag := agent.NewScripted(
		domain.ToolStart("getBalance"),
		domain.ContentDelta("partial"),
		domain.StreamError("boom"),
	)
	r := runner.New(ag, runner.WithTracer(tp.Tracer("test")))

	res, err := r.Chat(context.Background(), balanceRequest(), relay.NewWriterSink(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, res.Status)

	names := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = s
	}
	require.Contains(t, names, "Runner.Run")
	require.Contains(t, names, "Relay.Stream")

	stream := names["Relay.Stream"]
	assert.Equal(t, codes.Error, stream.Status().Code)
	var events []string
	for _, ev := range stream.Events() {
		events = append(events, ev.Name)
	}
	assert.Contains(t, events, "tool.start")
	assert.Equal(t, names["Runner.Run"].SpanContext().TraceID(), stream.SpanContext().TraceID())
}

func TestInitTracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := observability.InitTracing("weave-test", "v0.0.0", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("weave/test").Start(context.Background(), "Test.Span")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "Test.Span")
	assert.Contains(t, buf.String(), "weave-test")
}

func TestAuditHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ag := agent.NewScripted(
		domain.ToolStart("transferTokens"),
		domain.ToolEnd("transferTokens", `{"success": true, "txHash": "0xfeed"}`),
		domain.StreamEnd(),
	)
	r := runner.New(ag, runner.WithHooks(observability.AuditHooks(logger)))

	_, err := r.Chat(context.Background(), balanceRequest(), relay.NewWriterSink(io.Discard))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"run_start"`)
	assert.Contains(t, out, `"msg":"tool_start"`)
	assert.Contains(t, out, `"tx_hash":"0xfeed"`)
	assert.Contains(t, out, `"msg":"run_end"`)
}
