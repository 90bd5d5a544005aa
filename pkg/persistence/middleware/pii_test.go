package middleware_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persistence/middleware"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlying)
	ctx := context.Background()

	original := json.RawMessage(`{
		"username": "jdoe",
		"user_password": "secret123",
		"details": {"address": "123 St", "ssn_number": "999-99-9999"},
		"nodes": [{"data": {"password": "hunter2"}}]
	}`)
	id, err := store.Create(ctx, domain.CollectionChats, original)
	require.NoError(t, err)

	assert.Contains(t, string(original), "secret123", "caller bytes must not be modified")

	rec, err := underlying.Get(ctx, domain.CollectionChats, id)
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(rec.Data, &stored))
	assert.Equal(t, "jdoe", stored["username"])
	assert.Equal(t, middleware.Mask, stored["user_password"])
	details := stored["details"].(map[string]any)
	assert.Equal(t, "123 St", details["address"])
	assert.Equal(t, middleware.Mask, details["ssn_number"])
	node := stored["nodes"].([]any)[0].(map[string]any)
	assert.Equal(t, middleware.Mask, node["data"].(map[string]any)["password"])
}

func TestPIIMiddleware_PutAndUpdate(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(underlying)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.CollectionGraphs, "g", json.RawMessage(`{"apiKey":"sk-1"}`)))
	rec, err := store.Get(ctx, domain.CollectionGraphs, "g")
	require.NoError(t, err)
	assert.JSONEq(t, `{"apiKey":"***"}`, string(rec.Data))

	require.NoError(t, store.Update(ctx, domain.CollectionGraphs, "g", json.RawMessage(`{"privateKey":"0xabc","name":"x"}`)))
	rec, err = store.Get(ctx, domain.CollectionGraphs, "g")
	require.NoError(t, err)
	assert.JSONEq(t, `{"privateKey":"***","name":"x"}`, string(rec.Data))
}

func TestPIIMiddleware_ScalarDocumentsPassThrough(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.NewPIIMiddleware([]string{"password"})(underlying)

	id, err := store.Create(context.Background(), domain.CollectionHistory, json.RawMessage(`"password"`))
	require.NoError(t, err)
	rec, err := underlying.Get(context.Background(), domain.CollectionHistory, id)
	require.NoError(t, err)
	assert.Equal(t, `"password"`, string(rec.Data))
}

func TestPIIMiddleware_RejectsInvalidJSON(t *testing.T) {
	store := middleware.NewPIIMiddleware([]string{"password"})(memory.NewStore())
	_, err := store.Create(context.Background(), domain.CollectionChats, json.RawMessage(`{broken`))
	require.Error(t, err)
}

func TestPIIMiddleware_Contract(t *testing.T) {
	store := middleware.Chain(memory.NewStore(), middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
	ports.RunRecordStoreContract(t, store)
}
