package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// SubscribeEventsParams defines the query parameters of SubscribeEvents.
type SubscribeEventsParams struct {
	// Status is a comma separated list of statuses to forward.
	Status *string `form:"status,omitempty" json:"status,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	GetHealth(w http.ResponseWriter, r *http.Request)
	GetInfo(w http.ResponseWriter, r *http.Request)

	Chat(w http.ResponseWriter, r *http.Request)
	ListChats(w http.ResponseWriter, r *http.Request)
	CreateChat(w http.ResponseWriter, r *http.Request)
	GetChat(w http.ResponseWriter, r *http.Request, chatID string)
	DeleteChat(w http.ResponseWriter, r *http.Request, chatID string)
	ListChatMessages(w http.ResponseWriter, r *http.Request, chatID string)

	ListGraphs(w http.ResponseWriter, r *http.Request)
	CreateGraph(w http.ResponseWriter, r *http.Request)
	GetGraph(w http.ResponseWriter, r *http.Request, graphID string)
	DeleteGraph(w http.ResponseWriter, r *http.Request, graphID string)
	AddNode(w http.ResponseWriter, r *http.Request, graphID string)
	SetNodeField(w http.ResponseWriter, r *http.Request, graphID, nodeID string)
	DeleteNode(w http.ResponseWriter, r *http.Request, graphID, nodeID string)
	DuplicateNode(w http.ResponseWriter, r *http.Request, graphID, nodeID string)
	ConnectNodes(w http.ResponseWriter, r *http.Request, graphID string)
	RemoveEdge(w http.ResponseWriter, r *http.Request, graphID, edgeID string)
	RunGraph(w http.ResponseWriter, r *http.Request, graphID string)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, graphID string, params SubscribeEventsParams)
	GetGraphMermaid(w http.ResponseWriter, r *http.Request, graphID string)

	ListNodeTypes(w http.ResponseWriter, r *http.Request)
	GetNodeType(w http.ResponseWriter, r *http.Request, typeName string)
}

// wrapper binds path and query parameters before calling the handler.
type wrapper struct {
	handler ServerInterface
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

// pathParam binds a required simple-style path parameter.
func (wr *wrapper) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		wr.onError(w, r, fmt.Errorf("invalid format for parameter %s: %w", name, err))
		return "", false
	}
	return value, true
}

func (wr *wrapper) withGraph(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		graphID, ok := wr.pathParam(w, r, "graphId")
		if !ok {
			return
		}
		fn(w, r, graphID)
	}
}

func (wr *wrapper) withGraphAnd(second string, fn func(http.ResponseWriter, *http.Request, string, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		graphID, ok := wr.pathParam(w, r, "graphId")
		if !ok {
			return
		}
		id, ok := wr.pathParam(w, r, second)
		if !ok {
			return
		}
		fn(w, r, graphID, id)
	}
}

func (wr *wrapper) withChat(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := wr.pathParam(w, r, "chatId")
		if !ok {
			return
		}
		fn(w, r, chatID)
	}
}

func (wr *wrapper) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	graphID, ok := wr.pathParam(w, r, "graphId")
	if !ok {
		return
	}
	var params SubscribeEventsParams
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &params.Status); err != nil {
		wr.onError(w, r, fmt.Errorf("invalid format for parameter status: %w", err))
		return
	}
	wr.handler.SubscribeEvents(w, r, graphID, params)
}

func (wr *wrapper) getNodeType(w http.ResponseWriter, r *http.Request) {
	typeName, ok := wr.pathParam(w, r, "type")
	if !ok {
		return
	}
	wr.handler.GetNodeType(w, r, typeName)
}

// HandlerFromMux registers the API routes of si on r.
func HandlerFromMux(si ServerInterface, r chi.Router, onError func(http.ResponseWriter, *http.Request, error)) http.Handler {
	wr := &wrapper{handler: si, onError: onError}

	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", si.Chat)

		r.Get("/chats", si.ListChats)
		r.Post("/chats", si.CreateChat)
		r.Get("/chats/{chatId}", wr.withChat(si.GetChat))
		r.Delete("/chats/{chatId}", wr.withChat(si.DeleteChat))
		r.Get("/chats/{chatId}/messages", wr.withChat(si.ListChatMessages))

		r.Get("/graphs", si.ListGraphs)
		r.Post("/graphs", si.CreateGraph)
		r.Get("/graphs/{graphId}", wr.withGraph(si.GetGraph))
		r.Delete("/graphs/{graphId}", wr.withGraph(si.DeleteGraph))
		r.Post("/graphs/{graphId}/nodes", wr.withGraph(si.AddNode))
		r.Patch("/graphs/{graphId}/nodes/{nodeId}", wr.withGraphAnd("nodeId", si.SetNodeField))
		r.Delete("/graphs/{graphId}/nodes/{nodeId}", wr.withGraphAnd("nodeId", si.DeleteNode))
		r.Post("/graphs/{graphId}/nodes/{nodeId}/duplicate", wr.withGraphAnd("nodeId", si.DuplicateNode))
		r.Post("/graphs/{graphId}/edges", wr.withGraph(si.ConnectNodes))
		r.Delete("/graphs/{graphId}/edges/{edgeId}", wr.withGraphAnd("edgeId", si.RemoveEdge))
		r.Post("/graphs/{graphId}/run", wr.withGraph(si.RunGraph))
		r.Get("/graphs/{graphId}/events", wr.subscribeEvents)
		r.Get("/graphs/{graphId}/mermaid", wr.withGraph(si.GetGraphMermaid))

		r.Get("/node-types", si.ListNodeTypes)
		r.Get("/node-types/{type}", wr.getNodeType)
	})
	return r
}
