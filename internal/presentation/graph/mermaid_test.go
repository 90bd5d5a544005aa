package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		graph    *domain.Graph
		contains []string
		excludes []string
	}{
		{
			name: "Node Shapes",
			graph: &domain.Graph{Nodes: []domain.Node{
				{ID: "chat", Type: domain.NodeTypeChatModel},
				{ID: "w1", Type: domain.NodeTypeWorker},
				{ID: "boss", Type: domain.NodeTypeSupervisor},
				{ID: "mem", Type: domain.NodeTypeMemory},
			}},
			contains: []string{
				`chat(("chat"))`,
				`w1[["w1"]]`,
				`boss{{"boss"}}`,
				`mem["mem"]`,
			},
		},
		{
			name: "Worker Name Label",
			graph: &domain.Graph{Nodes: []domain.Node{
				{ID: "w1", Type: domain.NodeTypeWorker, Data: map[string]any{domain.FieldWorkerName: `Say "hi"`}},
			}},
			contains: []string{`w1[["w1 <br/> Say 'hi'"]]`},
		},
		{
			name: "ID Sanitization",
			graph: &domain.Graph{
				Nodes: []domain.Node{{ID: "node-1.a"}, {ID: "node/2"}},
				Edges: []domain.Edge{{Source: "node-1.a", Target: "node/2"}},
			},
			contains: []string{`node_1_a["node-1.a"]`, "node_1_a --> node_2"},
		},
		{
			name: "Supervisor Edge",
			graph: &domain.Graph{
				Nodes: []domain.Node{{ID: "boss"}, {ID: "w"}},
				Edges: []domain.Edge{{Source: "boss", Target: "w", SourceHandle: domain.HandleSupervisor}},
			},
			contains: []string{"boss -. supervises .-> w"},
		},
		{
			name: "Status Overlay",
			graph: &domain.Graph{
				Nodes:  []domain.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
				Status: map[string]domain.NodeStatus{"a": domain.StatusRunning, "b": domain.StatusError, "c": domain.StatusIdle},
			},
			contains: []string{"classDef running", "class a running;", "class b error;"},
			excludes: []string{"class c"},
		},
		{
			name:     "No Overlay Without Status",
			graph:    &domain.Graph{Nodes: []domain.Node{{ID: "a"}}},
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.graph)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestGenerateMermaid_Nil(t *testing.T) {
	assert.Equal(t, "graph TD\n", graph.GenerateMermaid(nil))
}
