package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordStoreContract runs a suite of tests to verify that a RecordStore
// implementation adheres to the interface contract.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	ctx := context.Background()
	collection := "contract-" + fmt.Sprint(time.Now().UnixNano())

	t.Run("Create and Get", func(t *testing.T) {
		id, err := store.Create(ctx, collection, json.RawMessage(`{"title":"hello","count":42}`))
		require.NoError(t, err, "Create should not return error")
		require.NotEmpty(t, id)

		rec, err := store.Get(ctx, collection, id)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, collection, rec.Collection)
		assert.JSONEq(t, `{"title":"hello","count":42}`, string(rec.Data))
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, collection, "missing")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		id, err := store.Create(ctx, collection, json.RawMessage(`{"v":1}`))
		require.NoError(t, err)

		require.NoError(t, store.Update(ctx, collection, id, json.RawMessage(`{"v":2}`)))
		rec, err := store.Get(ctx, collection, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(rec.Data))
		assert.False(t, rec.UpdatedAt.Before(rec.CreatedAt))

		err = store.Update(ctx, collection, "missing", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, domain.ErrRecordNotFound, "Update of unknown id should fail")
	})

	t.Run("Put", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, collection, "fixed-id", json.RawMessage(`{"v":"a"}`)))
		require.NoError(t, store.Put(ctx, collection, "fixed-id", json.RawMessage(`{"v":"b"}`)))
		rec, err := store.Get(ctx, collection, "fixed-id")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":"b"}`, string(rec.Data))
	})

	t.Run("Delete", func(t *testing.T) {
		id, err := store.Create(ctx, collection, json.RawMessage(`{}`))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, collection, id), "Delete should not return error")
		_, err = store.Get(ctx, collection, id)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound, "Get after Delete should return ErrRecordNotFound")

		assert.NoError(t, store.Delete(ctx, collection, id), "Deleting twice is not an error")
	})

	t.Run("Collections are isolated", func(t *testing.T) {
		id, err := store.Create(ctx, collection, json.RawMessage(`{}`))
		require.NoError(t, err)
		_, err = store.Get(ctx, collection+"-other", id)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("List", func(t *testing.T) {
		listed := collection + "-list"
		id1, err := store.Create(ctx, listed, json.RawMessage(`{"n":1}`))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		id2, err := store.Create(ctx, listed, json.RawMessage(`{"n":2}`))
		require.NoError(t, err)

		defer func() {
			_ = store.Delete(ctx, listed, id1)
			_ = store.Delete(ctx, listed, id2)
		}()

		records, err := store.List(ctx, listed)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, id1, records[0].ID)
		assert.Equal(t, id2, records[1].ID)

		empty, err := store.List(ctx, collection+"-empty")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

// RunGraphSourceContract verifies that a GraphSource persists a definition
// and reads it back without runtime status.
func RunGraphSourceContract(t *testing.T, src GraphSource) {
	t.Helper()
	ctx := context.Background()

	g := &domain.Graph{
		ID:   "contract",
		Name: "Contract graph",
		Nodes: []domain.Node{
			{ID: "sup", Type: domain.NodeTypeSupervisor, Data: map[string]any{"supervisorName": "Lead"}},
			{ID: "w", Type: domain.NodeTypeWorker, Position: domain.Position{X: 120, Y: 40}, Data: map[string]any{
				domain.FieldWorkerName:   "Sender",
				domain.FieldSelectedTool: "transferTokens",
			}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "sup", Target: "w", SourceHandle: domain.HandleSupervisor, TargetHandle: domain.HandleSupervisor},
		},
		Status: map[string]domain.NodeStatus{"w": domain.StatusRunning},
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, src.Save(ctx, g))

		loaded, err := src.Load(ctx)
		require.NoError(t, err)
		require.Len(t, loaded.Nodes, 2)
		w, ok := loaded.FindNode("w")
		require.True(t, ok)
		assert.Equal(t, domain.NodeTypeWorker, w.Type)
		assert.Equal(t, "transferTokens", w.Data[domain.FieldSelectedTool])
		assert.Equal(t, 120.0, w.Position.X)
		require.Len(t, loaded.Edges, 1)
		assert.Equal(t, "sup", loaded.Edges[0].Source)
		assert.Empty(t, loaded.Status)
	})
}
