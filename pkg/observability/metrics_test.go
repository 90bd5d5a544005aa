package observability_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/adapters/agent"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/observability"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balanceRequest() runner.Request {
	return runner.Request{Metadata: domain.ToolMetadata{
		ToolName:    "getBalance",
		Description: "Check the wallet balance",
		CallCount:   1,
	}}
}

func TestMetrics_RunnerIntegration(t *testing.T) {
	m := observability.NewMetrics()
	ag := agent.NewScripted(
		domain.ToolStart("getBalance"),
		domain.ToolEnd("getBalance", map[string]any{"success": true, "hash": "0xabc"}),
		domain.ContentDelta("done"),
		domain.StreamEnd(),
	)
	r := runner.New(ag, runner.WithMetrics(m))

	res, err := r.Chat(context.Background(), balanceRequest(), relay.NewWriterSink(io.Discard))
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, res.Status)

	expected := `
# HELP weave_tool_announcements_total Tool starts announced to clients
# TYPE weave_tool_announcements_total counter
weave_tool_announcements_total{tool_name="getBalance"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "weave_tool_announcements_total"))

	expected = `
# HELP weave_transactions_announced_total Successful transactions announced to clients
# TYPE weave_transactions_announced_total counter
weave_transactions_announced_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "weave_transactions_announced_total"))

	count, err := testutil.GatherAndCount(m.Registry(), "weave_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_DirectRecording(t *testing.T) {
	m := observability.NewMetrics()

	m.RunFinished("getBalance", domain.StatusError, "streaming", 2*time.Second)
	m.RunFinished("getBalance", domain.StatusError, "streaming", time.Second)
	m.RelayFinished(3, 42)
	m.ObserveStatus(domain.StatusEvent{NodeID: "w", Status: domain.StatusRunning})

	expected := `
# HELP weave_runs_total Total number of worker runs by outcome
# TYPE weave_runs_total counter
weave_runs_total{mode="streaming",status="error",tool_name="getBalance"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "weave_runs_total"))

	expected = `
# HELP weave_relay_bytes_total Bytes forwarded by the streaming relay
# TYPE weave_relay_bytes_total counter
weave_relay_bytes_total 42
# HELP weave_relay_chunks_total Fragments forwarded by the streaming relay
# TYPE weave_relay_chunks_total counter
weave_relay_chunks_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"weave_relay_bytes_total", "weave_relay_chunks_total"))

	count, err := testutil.GatherAndCount(m.Registry(), "weave_node_status_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.TransactionAnnounced()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "weave_transactions_announced_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
