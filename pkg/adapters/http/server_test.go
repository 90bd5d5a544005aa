package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/adapters/agent"
	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/observability"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/aretw0/weave/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	agent   *agent.Scripted
	graphs  *session.Manager
}

func newFixture(t *testing.T, ag *agent.Scripted, opts ...Option) *fixture {
	t.Helper()
	records := memory.NewStore()
	history := runner.NewHistory(records)
	graphs := session.NewManager(records)
	r := runner.New(ag, runner.WithHistory(history))

	h, err := NewHandler(r, graphs, append([]Option{WithHistory(history), WithVersion("1.2.3\n")}, opts...)...)
	require.NoError(t, err)
	return &fixture{handler: h, agent: ag, graphs: graphs}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func transferEvents() []domain.AgentEvent {
	return []domain.AgentEvent{
		domain.ToolStart("transferTokens"),
		domain.ToolStart("transferTokens"),
		domain.ToolEnd("transferTokens", map[string]any{"success": true, "hash": "0xabc123"}),
		domain.ContentDelta("Sent. Transaction hash: **0xabc123**"),
		domain.StreamEnd(),
	}
}

func chatBody(stream *bool) map[string]any {
	body := map[string]any{
		"metadata": map[string]any{
			"toolName":    "transferTokens",
			"description": "Send 5 tokens to the treasury",
			"callCount":   1,
		},
	}
	if stream != nil {
		body["stream"] = *stream
	}
	return body
}

func TestHealthAndInfo(t *testing.T) {
	f := newFixture(t, agent.NewScripted())

	w := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, "GET", "/info", nil)
	info := decode[map[string]string](t, w)
	assert.Equal(t, "weave-http", info["app"])
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = f.do(t, "GET", "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestChat_Streaming(t *testing.T) {
	f := newFixture(t, agent.NewScripted(transferEvents()...))

	w := f.do(t, "POST", "/api/chat", chatBody(nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, "Using tool: transferTokens"))
	assert.Contains(t, body, "Transaction successful!\nTransaction hash: 0xabc123")
	assert.Contains(t, body, "Sent. Transaction hash: 0xabc123")
	assert.NotContains(t, body, "**")
}

func TestChat_Buffered(t *testing.T) {
	ag := agent.NewScripted()
	ag.Messages = []domain.Message{
		{ID: "m1", Role: domain.RoleAssistant, Content: "Transaction hash: **0xfeed**"},
	}
	f := newFixture(t, ag)

	stream := false
	w := f.do(t, "POST", "/api/chat", chatBody(&stream))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[messagesResponse](t, w)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "Transaction hash: 0xfeed", resp.Messages[0].Content)
}

func TestChat_Errors(t *testing.T) {
	t.Run("missing tool name", func(t *testing.T) {
		f := newFixture(t, agent.NewScripted())
		w := f.do(t, "POST", "/api/chat", map[string]any{"metadata": map[string]any{"description": "x"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotEmpty(t, decode[errorBody](t, w).Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newFixture(t, agent.NewScripted())
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("agent unavailable", func(t *testing.T) {
		ag := agent.NewScripted()
		ag.StartErr = errors.New("connection refused")
		f := newFixture(t, ag, WithProduction(true))

		w := f.do(t, "POST", "/api/chat", chatBody(nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		body := decode[errorBody](t, w)
		assert.Equal(t, "internal server error", body.Error)
		assert.Empty(t, body.Details)
	})

	t.Run("upstream failure keeps partial output", func(t *testing.T) {
		f := newFixture(t, agent.NewScripted(
			domain.ContentDelta("Checking balance"),
			domain.StreamError("rate limited"),
		))

		w := f.do(t, "POST", "/api/chat", chatBody(nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Checking balance\n\n"+relay.FallbackLine, w.Body.String())
		assert.NotContains(t, w.Body.String(), "rate limited")
	})
}

func TestGraphLifecycle(t *testing.T) {
	f := newFixture(t, agent.NewScripted(transferEvents()...))

	w := f.do(t, "POST", "/api/graphs", map[string]any{"id": "g1", "name": "Treasury"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, "POST", "/api/graphs/g1/nodes", map[string]any{"id": "chat", "type": "chat_model"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	chat := decode[domain.Node](t, w)
	assert.Equal(t, 0.7, chat.Data["temperature"])

	w = f.do(t, "POST", "/api/graphs/g1/nodes", map[string]any{
		"id":   "w",
		"type": "worker",
		"data": map[string]any{"workerName": "Payer", "selectedTool": "transferTokens"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, "POST", "/api/graphs/g1/nodes", map[string]any{
		"type": "worker",
		"data": map[string]any{"selectedTool": "launchRocket"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "POST", "/api/graphs/g1/edges", map[string]any{"source": "chat", "target": "w"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	edge := decode[domain.Edge](t, w)

	w = f.do(t, "POST", "/api/graphs/g1/edges", map[string]any{"source": "chat", "target": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "PATCH", "/api/graphs/g1/nodes/w", map[string]any{"field": "maxIterations", "value": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, "PATCH", "/api/graphs/g1/nodes/w", map[string]any{"field": "colour", "value": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "POST", "/api/graphs/g1/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Using tool: transferTokens")

	prompt := f.agent.Requests()[0].Messages[0].Content
	assert.Contains(t, prompt, "transferTokens")
	assert.Contains(t, prompt, "2 times")

	w = f.do(t, "GET", "/api/graphs/g1", nil)
	g := decode[domain.Graph](t, w)
	assert.Equal(t, domain.StatusSuccess, g.Status["w"])
	assert.Len(t, g.Edges, 1)

	w = f.do(t, "GET", "/api/graphs/g1/mermaid", nil)
	assert.Contains(t, w.Body.String(), "class w success;")

	w = f.do(t, "POST", "/api/graphs/g1/nodes/w/duplicate", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	dup := decode[domain.Node](t, w)
	assert.NotEqual(t, "w", dup.ID)
	assert.Equal(t, "Payer", dup.Data["workerName"])

	w = f.do(t, "DELETE", "/api/graphs/g1/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, "DELETE", "/api/graphs/g1/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "DELETE", "/api/graphs/g1/nodes/chat", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, "GET", "/api/graphs", nil)
	list := decode[map[string][]session.Summary](t, w)
	require.Len(t, list["graphs"], 1)
	assert.Equal(t, 2, list["graphs"][0].Nodes)

	w = f.do(t, "DELETE", "/api/graphs/g1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, "GET", "/api/graphs/g1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunGraph_Errors(t *testing.T) {
	f := newFixture(t, agent.NewScripted(transferEvents()...))

	w := f.do(t, "POST", "/api/graphs/missing/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "POST", "/api/graphs", map[string]any{
		"id":    "nowork",
		"nodes": []map[string]any{{"id": "c", "type": "chat_model"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, "POST", "/api/graphs/nowork/run", map[string]any{"stream": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Details, domain.ErrNoWorkerNode.Error())
}

func TestChats(t *testing.T) {
	f := newFixture(t, agent.NewScripted(
		domain.ContentDelta("Balance is 42"),
		domain.StreamEnd(),
	))

	w := f.do(t, "POST", "/api/chats", map[string]any{"title": "Wallet"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	chat := decode[domain.Chat](t, w)

	body := chatBody(nil)
	body["chatId"] = chat.ID
	w = f.do(t, "POST", "/api/chat", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", "/api/chats/"+chat.ID+"/messages", nil)
	msgs := decode[messagesResponse](t, w).Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "Balance is 42", msgs[1].Content)

	w = f.do(t, "GET", "/api/chats", nil)
	assert.Len(t, decode[map[string][]domain.Chat](t, w)["chats"], 1)

	w = f.do(t, "DELETE", "/api/chats/"+chat.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, "GET", "/api/chats/"+chat.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChats_DisabledWithoutHistory(t *testing.T) {
	records := memory.NewStore()
	h, err := NewHandler(runner.New(agent.NewScripted()), session.NewManager(records))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/chats", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNodeTypes(t *testing.T) {
	f := newFixture(t, agent.NewScripted())

	w := f.do(t, "GET", "/api/node-types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"worker"`)

	w = f.do(t, "GET", "/api/node-types/worker", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "selectedTool")

	w = f.do(t, "GET", "/api/node-types/teleporter", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := observability.NewMetrics()
	f := newFixture(t, agent.NewScripted(), WithMetricsHandler(m.Handler()))
	m.ToolAnnounced("getBalance")

	w := f.do(t, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `weave_tool_announcements_total{tool_name="getBalance"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	ag := agent.NewScripted(domain.ContentDelta("ok"), domain.StreamEnd())
	ag.Delay = 20 * time.Millisecond
	f := newFixture(t, ag)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	_, err := f.graphs.Import(context.Background(), &domain.Graph{
		ID: "g1",
		Nodes: []domain.Node{{ID: "w", Type: domain.NodeTypeWorker, Data: map[string]any{
			"workerName":   "Checker",
			"selectedTool": "getBalance",
		}}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/graphs/g1/events?status=success", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	run, err := http.Post(srv.URL+"/api/graphs/g1/run", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_, _ = io.ReadAll(run.Body)
	run.Body.Close()

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			break
		}
	}
	var ev domain.StatusEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "w", ev.NodeID)
	assert.Equal(t, domain.StatusSuccess, ev.Status)
}

func TestSubscribeEvents_UnknownGraph(t *testing.T) {
	f := newFixture(t, agent.NewScripted())
	w := f.do(t, "GET", "/api/graphs/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
