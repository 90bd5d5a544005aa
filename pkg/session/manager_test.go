package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/weave/pkg/adapters/memory"
	redisadapter "github.com/aretw0/weave/pkg/adapters/redis"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workerNode(id string) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeWorker,
		Data: map[string]any{domain.FieldSelectedTool: "getBalance"},
	}
}

func TestManager_CreateAndReopen(t *testing.T) {
	ctx := context.Background()
	records := memory.NewStore()

	m1 := session.NewManager(records)
	store, err := m1.Create(ctx, "g1", "Treasury")
	require.NoError(t, err)

	require.NoError(t, m1.Update(ctx, "g1", func(s *graph.Store) error {
		_, err := s.AddNode(workerNode("w"))
		return err
	}))
	require.NoError(t, store.MarkRunning("w"))

	// A second manager sees the definition but never the runtime status.
	m2 := session.NewManager(records)
	reopened, err := m2.Open(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Treasury", reopened.Name())
	n, ok := reopened.Node("w")
	require.True(t, ok)
	assert.Equal(t, "getBalance", n.Data[domain.FieldSelectedTool])
	assert.Equal(t, domain.StatusIdle, reopened.Status("w"))
}

func TestManager_OpenReturnsLiveStore(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())

	created, err := m.Create(ctx, "g1", "")
	require.NoError(t, err)
	opened, err := m.Open(ctx, "g1")
	require.NoError(t, err)
	assert.Same(t, created, opened)
	assert.Equal(t, []string{"g1"}, m.Live())
}

func TestManager_OpenUnknown(t *testing.T) {
	m := session.NewManager(memory.NewStore())

	_, err := m.Open(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestManager_UpdateErrorSkipsSave(t *testing.T) {
	ctx := context.Background()
	records := memory.NewStore()
	m := session.NewManager(records)
	_, err := m.Create(ctx, "g1", "")
	require.NoError(t, err)

	err = m.Update(ctx, "g1", func(s *graph.Store) error {
		_, err := s.AddNode(domain.Node{ID: "x"})
		return err
	})
	require.Error(t, err)

	reloaded, err := session.NewManager(records).Open(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Nodes())
}

func TestManager_UpdateHoldsLockAgainstImport(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())
	_, err := m.Create(ctx, "g1", "Before")
	require.NoError(t, err)

	imported := make(chan error, 1)
	err = m.Update(ctx, "g1", func(s *graph.Store) error {
		go func() {
			_, err := m.Import(ctx, &domain.Graph{ID: "g1", Name: "After"})
			imported <- err
		}()
		select {
		case err := <-imported:
			t.Errorf("import finished during update: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
		_, err := s.AddNode(workerNode("w"))
		return err
	})
	require.NoError(t, err)
	require.NoError(t, <-imported)

	// The import ran after the update and replaced the edited graph whole.
	live, err := m.Open(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "After", live.Name())
	assert.Empty(t, live.Nodes())
}

func TestManager_UpdateAfterDelete(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())
	_, err := m.Create(ctx, "g1", "")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, "g1"))

	err = m.Update(ctx, "g1", func(s *graph.Store) error { return nil })
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestManager_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())

	_, err := m.Import(ctx, &domain.Graph{ID: "a", Name: "First", Nodes: []domain.Node{workerNode("w")}})
	require.NoError(t, err)
	_, err = m.Create(ctx, "b", "Second")
	require.NoError(t, err)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 1, list[0].Nodes)
	assert.Equal(t, "Second", list[1].Name)

	require.NoError(t, m.Delete(ctx, "a"))
	require.NoError(t, m.Delete(ctx, "a"))
	_, err = m.Open(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestManager_ImportRejectsUntypedNodes(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	_, err := m.Import(context.Background(), &domain.Graph{ID: "bad", Nodes: []domain.Node{{ID: "n"}}})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestManager_StatusEventsReachSubscribers(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())
	store, err := m.Import(ctx, &domain.Graph{ID: "g", Nodes: []domain.Node{workerNode("w")}})
	require.NoError(t, err)

	events, cancel := m.Hub().Subscribe("g", 4)
	defer cancel()

	require.NoError(t, store.MarkRunning("w"))
	require.NoError(t, store.MarkSuccess("w"))

	first := <-events
	second := <-events
	assert.Equal(t, domain.StatusRunning, first.Status)
	assert.Equal(t, domain.StatusSuccess, second.Status)
	assert.Equal(t, domain.StatusRunning, second.Previous)
	assert.Equal(t, "w", second.NodeID)
}

func TestManager_StatusObserver(t *testing.T) {
	ctx := context.Background()
	var seen []domain.NodeStatus
	m := session.NewManager(memory.NewStore(), session.WithStatusObserver(func(ev domain.StatusEvent) {
		seen = append(seen, ev.Status)
	}))
	store, err := m.Import(ctx, &domain.Graph{ID: "g", Nodes: []domain.Node{workerNode("w")}})
	require.NoError(t, err)

	require.NoError(t, store.MarkRunning("w"))
	require.NoError(t, store.MarkError("w"))
	assert.Equal(t, []domain.NodeStatus{domain.StatusRunning, domain.StatusError}, seen)
}

func TestManager_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())
	_, err := m.Create(ctx, "g", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Update(ctx, "g", func(s *graph.Store) error {
				_, err := s.AddNode(domain.Node{Type: domain.NodeTypeMemory})
				return err
			}))
		}()
	}
	wg.Wait()

	reloaded, err := session.NewManager(m.Records()).Open(ctx, "g")
	require.NoError(t, err)
	assert.Len(t, reloaded.Nodes(), 20)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redisadapter.NewLocker(client, "weave:lock:")
	m := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	_, err := m.Create(ctx, "g", "")
	require.NoError(t, err)

	// The lock is released after each operation.
	unlock, err := locker.Lock(ctx, "graph:g", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))

	held, err := locker.Lock(ctx, "graph:g", time.Second)
	require.NoError(t, err)
	defer held(ctx)

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	err = m.Save(short, "g")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distributed lock")
}
