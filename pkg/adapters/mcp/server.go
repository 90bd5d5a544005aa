// Package mcp exposes graph editing and worker runs as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/prompt"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/aretw0/weave/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Runner runs the worker node of a graph.
type Runner interface {
	RunGraph(ctx context.Context, store *graph.Store, opts runner.RunOptions, sink relay.Sink) (*runner.Result, error)
}

// RunResponse is the structured result of run_worker.
type RunResponse struct {
	GraphID string            `json:"graph_id" jsonschema_description:"Graph that was run"`
	NodeID  string            `json:"node_id" jsonschema_description:"Worker node that executed"`
	Status  domain.NodeStatus `json:"status" jsonschema_description:"Final execution status of the worker node"`
	Output  string            `json:"output" jsonschema_description:"Text streamed by the agent"`
	Tools   []string          `json:"tools,omitempty" jsonschema_description:"Tools announced during the run"`
	TxHash  string            `json:"tx_hash,omitempty" jsonschema_description:"Announced transaction hash"`
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRegistry sets the node type catalog.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// Server exposes a session manager and a runner as an MCP server.
type Server struct {
	graphs    *session.Manager
	runner    Runner
	registry  *registry.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(graphs *session.Manager, r Runner, version string, opts ...Option) *Server {
	s := &Server{
		graphs:    graphs,
		runner:    r,
		registry:  registry.Default(),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("weave-mcp", strings.TrimSpace(version), server.WithToolCapabilities(false)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the persisted workflow graphs."),
	), s.handleListGraphs)

	s.mcpServer.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("Return the nodes, edges and execution status of a graph."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph identifier")),
	), s.handleListNodes)

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a node to a graph. Declared defaults of the node type are applied."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph identifier")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Node type, e.g. worker or chat_model")),
		mcp.WithString("node_id", mcp.Description("Node identifier (generated when omitted)")),
		mcp.WithString("data", mcp.Description("JSON object with initial node fields")),
	), s.handleAddNode)

	s.mcpServer.AddTool(mcp.NewTool("connect_nodes",
		mcp.WithDescription("Connect two nodes of a graph. Self loops are ignored and repeated edges are returned as is."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph identifier")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithString("source_handle", mcp.Description("Source handle, e.g. supervisor")),
		mcp.WithString("target_handle", mcp.Description("Target handle")),
	), s.handleConnect)

	s.mcpServer.AddTool(mcp.NewTool("set_node_field",
		mcp.WithDescription("Set one field of a node's data. The value is parsed as JSON when possible."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph identifier")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node identifier")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field name declared by the node type")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value, JSON encoded or plain text")),
	), s.handleSetField)

	s.mcpServer.AddTool(mcp.NewTool("render_prompt",
		mcp.WithDescription("Render the instruction a worker would send for the given tool metadata."),
		mcp.WithString("tool_name", mcp.Required(), mcp.Description("Tool to call")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Task description")),
		mcp.WithNumber("call_count", mcp.Description("How many times the tool must be called (default 1)")),
		mcp.WithNumber("amount", mcp.Description("Amount passed to the tool")),
		mcp.WithString("next_to_call", mcp.Description("Tool to call afterwards")),
		mcp.WithString("tool_input", mcp.Description("Tool input, JSON encoded or plain text")),
	), s.handleRenderPrompt)

	s.mcpServer.AddTool(mcp.NewTool("run_worker",
		mcp.WithDescription("Run the first worker node of a graph and return the relayed output."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph identifier")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRunWorker))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("weave://node-types", "Node Type Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		raw, err := json.Marshal(s.registry.List())
		if err != nil {
			return nil, fmt.Errorf("failed to encode catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "weave://node-types",
				MIMEType: "application/json",
				Text:     string(raw),
			},
		}, nil
	})
}

func (s *Server) handleListGraphs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphs, err := s.graphs.List(ctx)
	if err != nil {
		return toolError("list graphs", err), nil
	}
	return jsonResult(graphs)
}

func (s *Server) handleListNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := request.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	store, err := s.graphs.Open(ctx, graphID)
	if err != nil {
		return toolError("open graph", err), nil
	}
	return jsonResult(store.Snapshot())
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := request.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeType := domain.NodeType(typ)

	data := s.registry.Defaults(nodeType)
	if data == nil {
		data = make(map[string]any)
	}
	if raw := request.GetString("data", ""); raw != "" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("data must be a JSON object: %v", err)), nil
		}
		for field, value := range fields {
			if err := s.registry.ValidateField(nodeType, field, value); err != nil {
				return toolError("add node", err), nil
			}
			data[field] = value
		}
	}

	var node domain.Node
	err = s.graphs.Update(ctx, graphID, func(g *graph.Store) error {
		var err error
		node, err = g.AddNode(domain.Node{ID: request.GetString("node_id", ""), Type: nodeType, Data: data})
		return err
	})
	if err != nil {
		return toolError("add node", err), nil
	}
	return jsonResult(node)
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := request.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := request.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var edge domain.Edge
	err = s.graphs.Update(ctx, graphID, func(g *graph.Store) error {
		var err error
		edge, err = g.Connect(source, request.GetString("source_handle", ""), target, request.GetString("target_handle", ""))
		return err
	})
	if err != nil {
		return toolError("connect nodes", err), nil
	}
	if edge.ID == "" {
		return mcp.NewToolResultText("self loop ignored"), nil
	}
	return jsonResult(edge)
}

func (s *Server) handleSetField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := request.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeID, err := request.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value := parseValue(request.GetString("value", ""))

	var node domain.Node
	err = s.graphs.Update(ctx, graphID, func(g *graph.Store) error {
		if err := g.SetNodeField(nodeID, field, value); err != nil {
			return err
		}
		node, _ = g.Node(nodeID)
		return nil
	})
	if err != nil {
		return toolError("set node field", err), nil
	}
	return jsonResult(node)
}

func (s *Server) handleRenderPrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolName, err := request.RequireString("tool_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta := domain.ToolMetadata{
		ToolName:    toolName,
		Description: description,
		CallCount:   request.GetInt("call_count", 1),
		NextToCall:  request.GetString("next_to_call", ""),
	}
	if _, ok := request.GetArguments()["amount"]; ok {
		a := request.GetFloat("amount", 0)
		meta.Amount = &a
	}
	if raw := request.GetString("tool_input", ""); raw != "" {
		meta.ToolInput = parseValue(raw)
	}
	if err := meta.Validate(); err != nil {
		return toolError("render prompt", err), nil
	}
	return mcp.NewToolResultText(prompt.RenderInstruction(meta)), nil
}

func (s *Server) handleRunWorker(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	graphID, _ := args["graph_id"].(string)
	if graphID == "" {
		return RunResponse{}, errors.New("graph_id is required")
	}
	store, err := s.graphs.Open(ctx, graphID)
	if err != nil {
		return RunResponse{}, fmt.Errorf("open graph: %w", err)
	}

	var out strings.Builder
	res, err := s.runner.RunGraph(ctx, store, runner.RunOptions{Mode: relay.ModeStreaming}, relay.NewWriterSink(&out))
	if err != nil {
		s.logger.Warn("MCP run_worker failed", "graph_id", graphID, "err", err)
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}

	resp := RunResponse{
		GraphID: res.GraphID,
		NodeID:  res.NodeID,
		Status:  res.Status,
		Output:  out.String(),
	}
	if res.Outcome != nil {
		resp.Tools = res.Outcome.Tools
		resp.TxHash = res.Outcome.TxHash
	}
	return resp, nil
}

// parseValue decodes raw as JSON and falls back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func toolError(action string, err error) *mcp.CallToolResult {
	typed := domain.Classify(err, domain.KindInitialization)
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", action, typed.Error()))
}
