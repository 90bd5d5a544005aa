package sqlite_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/aretw0/weave/pkg/adapters/sqlite"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "weave.db"))
	require.NoError(t, err)
	defer store.Close()

	ports.RunRecordStoreContract(t, store)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weave.db")
	ctx := context.Background()

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	id, err := store.Create(ctx, domain.CollectionGraphs, json.RawMessage(`{"id":"g"}`))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = sqlite.Open(path)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Get(ctx, domain.CollectionGraphs, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"g"}`, string(rec.Data))
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ports.RunRecordStoreContract(t, store)
}
