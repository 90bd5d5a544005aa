package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/weave/pkg/adapters/agent"
	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/aretw0/weave/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, ag *agent.Scripted) (*Server, *session.Manager) {
	t.Helper()
	graphs := session.NewManager(memory.NewStore())
	_, err := graphs.Create(context.Background(), "g1", "Treasury")
	require.NoError(t, err)
	return NewServer(graphs, runner.New(ag), "0.1.0\n"), graphs
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestEditGraph(t *testing.T) {
	s, graphs := newTestServer(t, agent.NewScripted())
	ctx := context.Background()

	res, err := s.handleAddNode(ctx, call(map[string]any{"graph_id": "g1", "type": "chat_model", "node_id": "chat"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var chat domain.Node
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &chat))
	assert.Equal(t, 0.7, chat.Data["temperature"])

	res, err = s.handleAddNode(ctx, call(map[string]any{
		"graph_id": "g1",
		"type":     "worker",
		"node_id":  "w",
		"data":     `{"workerName":"Payer","selectedTool":"transferTokens"}`,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	res, err = s.handleConnect(ctx, call(map[string]any{"graph_id": "g1", "source": "chat", "target": "w"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	res, err = s.handleConnect(ctx, call(map[string]any{"graph_id": "g1", "source": "w", "target": "w"}))
	require.NoError(t, err)
	assert.Equal(t, "self loop ignored", text(t, res))

	res, err = s.handleSetField(ctx, call(map[string]any{"graph_id": "g1", "node_id": "w", "field": "maxIterations", "value": "3"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	store, err := graphs.Open(ctx, "g1")
	require.NoError(t, err)
	w, ok := store.Node("w")
	require.True(t, ok)
	assert.EqualValues(t, 3, w.Data["maxIterations"])
	assert.Len(t, store.Edges(), 1)

	res, err = s.handleListNodes(ctx, call(map[string]any{"graph_id": "g1"}))
	require.NoError(t, err)
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &g))
	assert.Len(t, g.Nodes, 2)
}

func TestToolErrors(t *testing.T) {
	s, _ := newTestServer(t, agent.NewScripted())
	ctx := context.Background()

	res, err := s.handleListNodes(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleListNodes(ctx, call(map[string]any{"graph_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "NotFoundError")

	res, err = s.handleAddNode(ctx, call(map[string]any{"graph_id": "g1", "type": "worker", "data": "not json"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleConnect(ctx, call(map[string]any{"graph_id": "g1", "source": "a", "target": "b"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "NotFoundError")
}

func TestRenderPrompt(t *testing.T) {
	s, _ := newTestServer(t, agent.NewScripted())

	res, err := s.handleRenderPrompt(context.Background(), call(map[string]any{
		"tool_name":   "transferTokens",
		"description": "Send 5 APT",
		"amount":      5.0,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	out := text(t, res)
	assert.Contains(t, out, "# Tool Execution: transferTokens")
	assert.Contains(t, out, "Amount to be passed: 5")

	res, err = s.handleRenderPrompt(context.Background(), call(map[string]any{"tool_name": "transferTokens"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRunWorker(t *testing.T) {
	ag := agent.NewScripted(
		domain.ToolStart("transferTokens"),
		domain.ToolEnd("transferTokens", map[string]any{"success": true, "hash": "0xfeed"}),
		domain.ContentDelta("Done. Transaction hash: **0xfeed**"),
		domain.StreamEnd(),
	)
	s, graphs := newTestServer(t, ag)
	ctx := context.Background()

	_, err := s.handleRunWorker(ctx, call(nil), map[string]any{"graph_id": "g1"})
	require.Error(t, err)

	require.NoError(t, graphs.Update(ctx, "g1", func(store *graph.Store) error {
		_, err := store.AddNode(domain.Node{
			ID:   "w",
			Type: domain.NodeTypeWorker,
			Data: map[string]any{"workerName": "Payer", "selectedTool": "transferTokens"},
		})
		return err
	}))

	resp, err := s.handleRunWorker(ctx, call(nil), map[string]any{"graph_id": "g1"})
	require.NoError(t, err)
	assert.Equal(t, "w", resp.NodeID)
	assert.Equal(t, domain.StatusSuccess, resp.Status)
	assert.Equal(t, "0xfeed", resp.TxHash)
	assert.Equal(t, []string{"transferTokens"}, resp.Tools)
	assert.Contains(t, resp.Output, "Using tool: transferTokens")
	assert.Contains(t, resp.Output, "Done. Transaction hash: 0xfeed")
}

func TestRegisteredTools(t *testing.T) {
	s, _ := newTestServer(t, agent.NewScripted())

	raw := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
	))
	out, err := json.Marshal(raw)
	require.NoError(t, err)
	for _, name := range []string{"list_graphs", "list_nodes", "add_node", "connect_nodes", "set_node_field", "render_prompt", "run_worker"} {
		assert.Contains(t, string(out), `"`+name+`"`)
	}
}
