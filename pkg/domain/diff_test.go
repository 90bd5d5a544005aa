package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	worker := Node{ID: "w1", Type: NodeTypeWorker, Data: map[string]any{"selectedTool": "transferTokens"}}
	chat := Node{ID: "c1", Type: NodeTypeChatModel}

	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		g := &Graph{ID: "g1", Nodes: []Node{worker}, Version: 1}
		diff := Diff(nil, g)
		require.NotNil(t, diff)
		assert.Equal(t, "g1", diff.GraphID)
		assert.Len(t, diff.AddedNodes, 1)
	})

	t.Run("No Changes", func(t *testing.T) {
		g := &Graph{ID: "g1", Nodes: []Node{worker}}
		assert.Nil(t, Diff(g, g))
	})

	t.Run("Removed Node and Edge", func(t *testing.T) {
		old := &Graph{
			ID:    "g1",
			Nodes: []Node{worker, chat},
			Edges: []Edge{{ID: "e1", Source: "c1", Target: "w1"}},
		}
		updated := &Graph{ID: "g1", Nodes: []Node{worker}}
		diff := Diff(old, updated)
		require.NotNil(t, diff)
		assert.Equal(t, []string{"c1"}, diff.RemovedNodes)
		assert.Equal(t, []string{"e1"}, diff.RemovedEdges)
	})

	t.Run("Changed Data", func(t *testing.T) {
		changed := worker.Clone()
		changed.Data["selectedTool"] = "swap"
		diff := Diff(&Graph{ID: "g1", Nodes: []Node{worker}}, &Graph{ID: "g1", Nodes: []Node{changed}})
		require.NotNil(t, diff)
		require.Len(t, diff.ChangedNodes, 1)
		assert.Equal(t, "swap", diff.ChangedNodes[0].Data["selectedTool"])
	})

	t.Run("Status Reset Reported As Idle", func(t *testing.T) {
		old := &Graph{ID: "g1", Nodes: []Node{worker}, Status: map[string]NodeStatus{"w1": StatusError}}
		updated := &Graph{ID: "g1", Nodes: []Node{worker}}
		diff := Diff(old, updated)
		require.NotNil(t, diff)
		assert.Equal(t, StatusIdle, diff.Status["w1"])
	})
}

func TestNodeClone_DeepCopiesData(t *testing.T) {
	original := Node{
		ID:   "n1",
		Type: NodeTypeWorker,
		Data: map[string]any{
			"nested": map[string]any{"k": "v"},
			"list":   []any{"a", map[string]any{"x": 1}},
		},
		Connections: []string{"n2"},
	}

	copied := original.Clone()
	copied.Data["nested"].(map[string]any)["k"] = "changed"
	copied.Data["list"].([]any)[1].(map[string]any)["x"] = 2
	copied.Connections[0] = "n3"

	assert.Equal(t, "v", original.Data["nested"].(map[string]any)["k"])
	assert.Equal(t, 1, original.Data["list"].([]any)[1].(map[string]any)["x"])
	assert.Equal(t, "n2", original.Connections[0])
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNotFound, Classify(ErrNodeNotFound, KindInitialization).Kind)
	assert.Equal(t, KindValidation, Classify(ErrNoWorkerNode, KindInitialization).Kind)
	assert.Equal(t, 400, Classify(ErrNoToolSelected, KindInitialization).StatusCode())

	typed := NewError(KindUpstreamStream, "boom", nil)
	assert.Same(t, typed, Classify(typed, KindValidation))
	assert.True(t, IsKind(typed, KindUpstreamStream))
}
