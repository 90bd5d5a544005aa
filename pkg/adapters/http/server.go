package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/weave/internal/logging"
	mermaid "github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/aretw0/weave/pkg/relay"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/aretw0/weave/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Runner executes tool runs on behalf of the HTTP layer.
type Runner interface {
	Chat(ctx context.Context, req runner.Request, sink relay.Sink) (*runner.Result, error)
	RunGraph(ctx context.Context, store *graph.Store, opts runner.RunOptions, sink relay.Sink) (*runner.Result, error)
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithHistory enables the chat endpoints.
func WithHistory(h *runner.History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithRegistry sets the node type catalog served by the API.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithProduction hides internal error details from responses.
func WithProduction(production bool) Option {
	return func(s *Server) {
		s.production = production
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(v)
	}
}

// Server implements ServerInterface.
type Server struct {
	runner     Runner
	graphs     *session.Manager
	history    *runner.History
	registry   *registry.Registry
	metrics    http.Handler
	logger     *slog.Logger
	production bool
	version    string
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

// NewServer creates the API handlers.
func NewServer(r Runner, graphs *session.Manager, opts ...Option) *Server {
	s := &Server{
		runner:   r,
		graphs:   graphs,
		registry: registry.Default(),
		logger:   logging.NewNop(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler with request validation, CORS and the
// documentation routes.
func NewHandler(r Runner, graphs *session.Manager, opts ...Option) (http.Handler, error) {
	server := NewServer(r, graphs, opts...)

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := requestValidator(doc, server.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build request validator: %w", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(validate)

	router.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec())
	})
	if server.metrics != nil {
		router.Method(http.MethodGet, "/metrics", server.metrics)
	}

	handler := HandlerFromMux(server, router, func(w http.ResponseWriter, r *http.Request, err error) {
		server.writeError(w, r, domain.NewError(domain.KindValidation, "invalid parameter", err))
	})
	return enableCORS(handler), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- System --

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "weave-http",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

// -- Runs --

type chatRequest struct {
	Metadata domain.ToolMetadata `json:"metadata"`
	Stream   *bool               `json:"stream,omitempty"`
	ChatID   string              `json:"chatId,omitempty"`
}

type runRequest struct {
	Stream *bool  `json:"stream,omitempty"`
	ChatID string `json:"chatId,omitempty"`
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

func mode(stream *bool) relay.Mode {
	if stream != nil && !*stream {
		return relay.ModeBuffered
	}
	return relay.ModeStreaming
}

// Chat handles the POST /api/chat request.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decodeBody(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	req := runner.Request{
		Metadata:  body.Metadata,
		Mode:      mode(body.Stream),
		ChatID:    body.ChatID,
		SessionID: requestID(r),
	}
	s.execute(w, r, req.Mode, func(sink relay.Sink) (*runner.Result, error) {
		return s.runner.Chat(r.Context(), req, sink)
	})
}

// RunGraph handles the POST /api/graphs/{graphId}/run request.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request, graphID string) {
	var body runRequest
	if err := decodeBody(r, &body, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	store, err := s.graphs.Open(r.Context(), graphID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := runner.RunOptions{Mode: mode(body.Stream), ChatID: body.ChatID, SessionID: requestID(r)}
	s.execute(w, r, opts.Mode, func(sink relay.Sink) (*runner.Result, error) {
		return s.runner.RunGraph(r.Context(), store, opts, sink)
	})
}

// execute runs fn in the requested mode. A streaming response is committed
// on its first fragment, so errors that happen before it are still reported
// as JSON.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, m relay.Mode, fn func(relay.Sink) (*runner.Result, error)) {
	if m == relay.ModeBuffered {
		res, err := fn(nil)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		msgs := res.Messages
		if msgs == nil {
			msgs = []domain.Message{}
		}
		writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
		return
	}

	sw := newStreamWriter(w)
	res, err := fn(relay.NewWriterSink(sw))
	if err != nil && !sw.Started() {
		s.writeError(w, r, err)
		return
	}
	sw.Begin()
	if err != nil {
		s.logger.Warn("run failed after stream start", "path", r.URL.Path, "err", err)
		return
	}
	s.logger.Debug("run streamed", "session_id", res.SessionID, "status", res.Status)
}

// -- Chats --

type createChatRequest struct {
	Title   string `json:"title,omitempty"`
	GraphID string `json:"graphId,omitempty"`
}

func (s *Server) requireHistory(w http.ResponseWriter, r *http.Request) bool {
	if s.history == nil {
		s.writeError(w, r, domain.NewError(domain.KindValidation, "chat history is not enabled", nil))
		return false
	}
	return true
}

// ListChats handles the GET /api/chats request.
func (s *Server) ListChats(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w, r) {
		return
	}
	chats, err := s.history.Chats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// CreateChat handles the POST /api/chats request.
func (s *Server) CreateChat(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w, r) {
		return
	}
	var body createChatRequest
	if err := decodeBody(r, &body, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	chat, err := s.history.CreateChat(r.Context(), body.Title, body.GraphID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// GetChat handles the GET /api/chats/{chatId} request.
func (s *Server) GetChat(w http.ResponseWriter, r *http.Request, chatID string) {
	if !s.requireHistory(w, r) {
		return
	}
	chat, err := s.history.Chat(r.Context(), chatID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// DeleteChat handles the DELETE /api/chats/{chatId} request.
func (s *Server) DeleteChat(w http.ResponseWriter, r *http.Request, chatID string) {
	if !s.requireHistory(w, r) {
		return
	}
	if err := s.history.DeleteChat(r.Context(), chatID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChatMessages handles the GET /api/chats/{chatId}/messages request.
func (s *Server) ListChatMessages(w http.ResponseWriter, r *http.Request, chatID string) {
	if !s.requireHistory(w, r) {
		return
	}
	if _, err := s.history.Chat(r.Context(), chatID); err != nil {
		s.writeError(w, r, err)
		return
	}
	msgs, err := s.history.Messages(r.Context(), chatID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

// -- Graphs --

type addNodeRequest struct {
	ID       string          `json:"id,omitempty"`
	Type     domain.NodeType `json:"type"`
	Position domain.Position `json:"position"`
	Data     map[string]any  `json:"data,omitempty"`
}

type setFieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type connectRequest struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// ListGraphs handles the GET /api/graphs request.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.graphs.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": graphs})
}

// CreateGraph handles the POST /api/graphs request. The body may carry a
// complete graph definition.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var body domain.Graph
	if err := decodeBody(r, &body, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}
	body.Status = nil
	store, err := s.graphs.Import(r.Context(), &body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, store.Snapshot())
}

// GetGraph handles the GET /api/graphs/{graphId} request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request, graphID string) {
	store, err := s.graphs.Open(r.Context(), graphID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// DeleteGraph handles the DELETE /api/graphs/{graphId} request.
func (s *Server) DeleteGraph(w http.ResponseWriter, r *http.Request, graphID string) {
	if err := s.graphs.Delete(r.Context(), graphID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddNode handles the POST /api/graphs/{graphId}/nodes request. Declared
// defaults of the node type fill the fields the body leaves out.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request, graphID string) {
	var body addNodeRequest
	if err := decodeBody(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	data := s.registry.Defaults(body.Type)
	if data == nil {
		data = make(map[string]any)
	}
	for field, value := range body.Data {
		if err := s.registry.ValidateField(body.Type, field, value); err != nil {
			s.writeError(w, r, err)
			return
		}
		data[field] = value
	}

	var node domain.Node
	err := s.graphs.Update(r.Context(), graphID, func(g *graph.Store) error {
		var err error
		node, err = g.AddNode(domain.Node{ID: body.ID, Type: body.Type, Position: body.Position, Data: data})
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// SetNodeField handles the PATCH /api/graphs/{graphId}/nodes/{nodeId} request.
func (s *Server) SetNodeField(w http.ResponseWriter, r *http.Request, graphID, nodeID string) {
	var body setFieldRequest
	if err := decodeBody(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Field) == "" {
		s.writeError(w, r, domain.NewError(domain.KindValidation, "field is required", nil))
		return
	}

	var node domain.Node
	err := s.graphs.Update(r.Context(), graphID, func(g *graph.Store) error {
		if err := g.SetNodeField(nodeID, body.Field, body.Value); err != nil {
			return err
		}
		node, _ = g.Node(nodeID)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// DeleteNode handles the DELETE /api/graphs/{graphId}/nodes/{nodeId} request.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request, graphID, nodeID string) {
	err := s.graphs.Update(r.Context(), graphID, func(g *graph.Store) error {
		g.DeleteNode(nodeID)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateNode handles the POST /api/graphs/{graphId}/nodes/{nodeId}/duplicate request.
func (s *Server) DuplicateNode(w http.ResponseWriter, r *http.Request, graphID, nodeID string) {
	var node domain.Node
	err := s.graphs.Update(r.Context(), graphID, func(g *graph.Store) error {
		var err error
		node, err = g.DuplicateNode(nodeID)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// ConnectNodes handles the POST /api/graphs/{graphId}/edges request.
func (s *Server) ConnectNodes(w http.ResponseWriter, r *http.Request, graphID string) {
	var body connectRequest
	if err := decodeBody(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	var edge domain.Edge
	err := s.graphs.Update(r.Context(), graphID, func(g *graph.Store) error {
		var err error
		edge, err = g.Connect(body.Source, body.SourceHandle, body.Target, body.TargetHandle)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

// RemoveEdge handles the DELETE /api/graphs/{graphId}/edges/{edgeId} request.
func (s *Server) RemoveEdge(w http.ResponseWriter, r *http.Request, graphID, edgeID string) {
	err := s.graphs.Update(r.Context(), graphID, func(g *graph.Store) error {
		if !g.RemoveEdge(edgeID) {
			return domain.NewError(domain.KindNotFound, fmt.Sprintf("edge %q not found", edgeID), nil)
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraphMermaid handles the GET /api/graphs/{graphId}/mermaid request.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request, graphID string) {
	store, err := s.graphs.Open(r.Context(), graphID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(mermaid.GenerateMermaid(store.Snapshot())))
}

// SubscribeEvents handles the GET /api/graphs/{graphId}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, graphID string, params SubscribeEventsParams) {
	if _, err := s.graphs.Open(r.Context(), graphID); err != nil {
		s.writeError(w, r, err)
		return
	}
	rc := http.NewResponseController(w)

	var filter map[domain.NodeStatus]bool
	if params.Status != nil && *params.Status != "" {
		filter = make(map[domain.NodeStatus]bool)
		for _, st := range strings.Split(*params.Status, ",") {
			filter[domain.NodeStatus(strings.TrimSpace(st))] = true
		}
	}

	events, cancel := s.graphs.Hub().Subscribe(graphID, 16)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	if err := rc.Flush(); err != nil {
		s.logger.Error("SubscribeEvents: streaming not supported", "error", err)
		return
	}
	s.logger.Info("SSE: subscribed to graph status", "graph_id", graphID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "graph_id", graphID)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filter != nil && !filter[ev.Status] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			_ = rc.Flush()
		}
	}
}

// -- Node types --

// ListNodeTypes handles the GET /api/node-types request.
func (s *Server) ListNodeTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"nodeTypes": s.registry.List()})
}

// GetNodeType handles the GET /api/node-types/{type} request.
func (s *Server) GetNodeType(w http.ResponseWriter, r *http.Request, typeName string) {
	t, ok := s.registry.Get(domain.NodeType(typeName))
	if !ok {
		s.writeError(w, r, domain.NewError(domain.KindNotFound, fmt.Sprintf("node type %q not found", typeName), nil))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
