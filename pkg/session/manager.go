package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/registry"
)

// DefaultLockTTL bounds how long a distributed graph lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Summary describes a persisted graph.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Nodes     int       `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager orchestrates graph access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	records  ports.RecordStore
	registry *registry.Registry

	mu     sync.Mutex
	locks  map[string]*lockEntry
	graphs map[string]*graph.Store

	hub       *Hub
	observers []graph.StatusListener
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRegistry sets the registry handed to every graph store.
func WithRegistry(r *registry.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithHub shares an existing status hub.
func WithHub(h *Hub) Option {
	return func(m *Manager) {
		m.hub = h
	}
}

// WithStatusObserver receives the status events of every graph the
// manager opens, e.g. to record metrics.
func WithStatusObserver(fn graph.StatusListener) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, fn)
	}
}

// NewManager creates a Manager persisting graphs in records.
func NewManager(records ports.RecordStore, opts ...Option) *Manager {
	m := &Manager{
		records:  records,
		registry: registry.Default(),
		locks:    make(map[string]*lockEntry),
		graphs:   make(map[string]*graph.Store),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.hub == nil {
		m.hub = NewHub(m.logger)
	}
	return m
}

// Hub returns the status hub.
func (m *Manager) Hub() *Hub {
	return m.hub
}

// Records returns the underlying record store.
func (m *Manager) Records() ports.RecordStore {
	return m.records
}

// Create starts a new empty graph and persists it.
func (m *Manager) Create(ctx context.Context, id, name string) (*graph.Store, error) {
	return m.Import(ctx, &domain.Graph{ID: id, Name: name})
}

// Import registers a graph definition, replacing any live store with the
// same id, and persists it.
func (m *Manager) Import(ctx context.Context, g *domain.Graph) (*graph.Store, error) {
	store, err := graph.FromGraph(g, m.storeOptions()...)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "invalid graph", err)
	}
	err = m.WithLock(ctx, store.ID(), func(ctx context.Context) error {
		if err := m.persist(ctx, store); err != nil {
			return err
		}
		m.mu.Lock()
		m.graphs[store.ID()] = store
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("graph registered", "graph_id", store.ID(), "nodes", len(g.Nodes))
	return store, nil
}

// Open returns the live store for id, loading it from the record store on
// first access.
func (m *Manager) Open(ctx context.Context, id string) (*graph.Store, error) {
	if s := m.live(id); s != nil {
		return s, nil
	}
	var store *graph.Store
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if s := m.live(id); s != nil {
			store = s
			return nil
		}
		rec, err := m.records.Get(ctx, domain.CollectionGraphs, id)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.NewError(domain.KindNotFound, fmt.Sprintf("graph %q", id), domain.ErrGraphNotFound)
			}
			return fmt.Errorf("failed to load graph: %w", err)
		}
		var g domain.Graph
		if err := json.Unmarshal(rec.Data, &g); err != nil {
			return fmt.Errorf("failed to decode graph %s: %w", id, err)
		}
		g.ID = id
		g.Status = nil
		store, err = graph.FromGraph(&g, m.storeOptions()...)
		if err != nil {
			return fmt.Errorf("failed to rebuild graph %s: %w", id, err)
		}
		m.mu.Lock()
		m.graphs[id] = store
		m.mu.Unlock()
		return nil
	})
	return store, err
}

// Update applies fn to the live store for id and persists the result.
// fn and the save run under the graph lock, so a concurrent Import or
// Delete cannot swap the store in between.
func (m *Manager) Update(ctx context.Context, id string, fn func(*graph.Store) error) error {
	if _, err := m.Open(ctx, id); err != nil {
		return err
	}
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		store := m.live(id)
		if store == nil {
			return domain.NewError(domain.KindNotFound, fmt.Sprintf("graph %q", id), domain.ErrGraphNotFound)
		}
		if err := fn(store); err != nil {
			return err
		}
		return m.persist(ctx, store)
	})
}

// Save persists the current definition of a live graph.
func (m *Manager) Save(ctx context.Context, id string) error {
	store := m.live(id)
	if store == nil {
		return domain.NewError(domain.KindNotFound, fmt.Sprintf("graph %q", id), domain.ErrGraphNotFound)
	}
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.persist(ctx, store)
	})
}

// Delete drops the live store and its record. Unknown ids are not an error.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		delete(m.graphs, id)
		m.mu.Unlock()
		return m.records.Delete(ctx, domain.CollectionGraphs, id)
	})
}

// List summarises the persisted graphs ordered by creation.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	recs, err := m.records.List(ctx, domain.CollectionGraphs)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		var g domain.Graph
		if err := json.Unmarshal(rec.Data, &g); err != nil {
			m.logger.Warn("skipping unreadable graph record", "graph_id", rec.ID, "err", err)
			continue
		}
		out = append(out, Summary{ID: rec.ID, Name: g.Name, Nodes: len(g.Nodes), UpdatedAt: rec.UpdatedAt})
	}
	return out, nil
}

// Live returns the ids of the graphs currently held in memory.
func (m *Manager) Live() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.graphs))
	for id := range m.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WithLock executes a function while holding the lock for the graph.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "graph:"+id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"graph_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) persist(ctx context.Context, store *graph.Store) error {
	snap := store.Snapshot()
	snap.Status = nil
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode graph %s: %w", store.ID(), err)
	}
	if err := m.records.Put(ctx, domain.CollectionGraphs, store.ID(), data); err != nil {
		return fmt.Errorf("failed to save graph %s: %w", store.ID(), err)
	}
	return nil
}

func (m *Manager) storeOptions() []graph.Option {
	opts := []graph.Option{
		graph.WithRegistry(m.registry),
		graph.WithLogger(m.logger),
		graph.WithStatusListener(m.hub.Publish),
	}
	for _, fn := range m.observers {
		opts = append(opts, graph.WithStatusListener(fn))
	}
	return opts
}

func (m *Manager) live(id string) *graph.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graphs[id]
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}
