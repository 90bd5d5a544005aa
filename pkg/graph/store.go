package graph

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/google/uuid"
)

// DuplicateOffset is how far a duplicated node is moved on both axes.
const DuplicateOffset = 40

// StatusListener is notified after every status change. It runs outside the
// store lock, so it may call back into the store.
type StatusListener func(domain.StatusEvent)

// Option configures a Store.
type Option func(*Store)

// WithRegistry sets the node type registry used to validate field updates.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Store) {
		s.registry = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithName sets the human readable graph name.
func WithName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}

// WithStatusListener registers a listener at construction time.
func WithStatusListener(fn StatusListener) Option {
	return func(s *Store) {
		s.listeners = append(s.listeners, fn)
	}
}

// Store is the mutable workflow graph.
type Store struct {
	mu sync.RWMutex

	id    string
	name  string
	nodes []domain.Node
	edges []domain.Edge

	running map[string]struct{}
	success map[string]struct{}
	failed  map[string]struct{}

	version uint64

	registry  *registry.Registry
	logger    *slog.Logger
	listeners []StatusListener
	now       func() time.Time
}

// New creates an empty graph. An empty id is replaced by a fresh uuid.
func New(id string, opts ...Option) *Store {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Store{
		id:       id,
		running:  make(map[string]struct{}),
		success:  make(map[string]struct{}),
		failed:   make(map[string]struct{}),
		registry: registry.Default(),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromGraph rebuilds a store from a snapshot. Edges and connections that
// reference missing nodes are dropped.
func FromGraph(g *domain.Graph, opts ...Option) (*Store, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	s := New(g.ID, append([]Option{WithName(g.Name)}, opts...)...)
	for _, n := range g.Nodes {
		if _, err := s.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
	}
	for _, e := range g.Edges {
		if s.indexOf(e.Source) < 0 || s.indexOf(e.Target) < 0 || e.Source == e.Target {
			s.logger.Warn("dropping dangling edge", "graph_id", s.id, "edge_id", e.ID)
			continue
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.edges = append(s.edges, e)
		src := &s.nodes[s.indexOf(e.Source)]
		if !src.ConnectsTo(e.Target) {
			src.Connections = append(src.Connections, e.Target)
		}
	}
	for id, st := range g.Status {
		if s.indexOf(id) < 0 {
			continue
		}
		s.setStatusLocked(id, st)
	}
	s.version = g.Version
	return s, nil
}

// ID returns the graph id.
func (s *Store) ID() string {
	return s.id
}

// Name returns the graph name.
func (s *Store) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Version is incremented by every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// OnStatusChange registers an additional status listener.
func (s *Store) OnStatusChange(fn StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AddNode inserts a node and returns the stored copy.
// The type must be non-empty; unknown types are accepted without a schema.
// Connections to nodes that do not exist yet are discarded.
func (s *Store) AddNode(n domain.Node) (domain.Node, error) {
	if n.Type == "" {
		return domain.Node{}, domain.NewError(domain.KindValidation, "node type is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if s.indexOf(n.ID) >= 0 {
		return domain.Node{}, domain.NewError(domain.KindValidation, fmt.Sprintf("node %q already exists", n.ID), nil)
	}

	stored := n.Clone()
	if stored.Data == nil {
		stored.Data = make(map[string]any)
	}
	var conns []string
	for _, target := range stored.Connections {
		if target != stored.ID && s.indexOf(target) >= 0 {
			conns = append(conns, target)
		}
	}
	stored.Connections = conns
	if !n.Type.Known() {
		s.logger.Debug("node type has no schema", "graph_id", s.id, "node_type", n.Type)
	}

	s.nodes = append(s.nodes, stored)
	s.version++
	s.logger.Debug("node added", "graph_id", s.id, "node_id", stored.ID, "node_type", stored.Type)
	return stored.Clone(), nil
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (s *Store) Edges() []domain.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Edge(nil), s.edges...)
}

// DeleteNode removes a node together with every edge and connection that
// references it. Unknown ids are ignored.
func (s *Store) DeleteNode(id string) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if !e.Touches(id) {
			kept = append(kept, e)
		}
	}
	s.edges = kept

	for j := range s.nodes {
		s.nodes[j].Connections = without(s.nodes[j].Connections, id)
	}

	ev, changed := s.setStatusLocked(id, domain.StatusIdle)
	s.version++
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Debug("node deleted", "graph_id", s.id, "node_id", id)
	if changed {
		notify(listeners, ev)
	}
}

// DuplicateNode copies a node under a fresh id, offset by DuplicateOffset.
// The copy is unselected and has no connections.
func (s *Store) DuplicateNode(id string) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Node{}, notFound(id)
	}
	dup := s.nodes[i].Clone()
	dup.ID = uuid.NewString()
	dup.Position = dup.Position.Offset(DuplicateOffset, DuplicateOffset)
	dup.Selected = false
	dup.Connections = nil

	s.nodes = append(s.nodes, dup)
	s.version++
	return dup.Clone(), nil
}

// Connect adds an edge from source to target and records the target in the
// source's connections. Self loops and repeated identical edges are no-ops.
// A missing endpoint leaves the graph unchanged and returns a NotFound error.
func (s *Store) Connect(source, sourceHandle, target, targetHandle string) (domain.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	si := s.indexOf(source)
	if si < 0 {
		return domain.Edge{}, notFound(source)
	}
	if s.indexOf(target) < 0 {
		return domain.Edge{}, notFound(target)
	}
	if source == target {
		return domain.Edge{}, nil
	}
	for _, e := range s.edges {
		if e.Source == source && e.Target == target && e.SourceHandle == sourceHandle && e.TargetHandle == targetHandle {
			return e, nil
		}
	}

	e := domain.Edge{
		ID:           uuid.NewString(),
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	}
	s.edges = append(s.edges, e)
	if !s.nodes[si].ConnectsTo(target) {
		s.nodes[si].Connections = append(s.nodes[si].Connections, target)
	}
	s.version++
	return e, nil
}

// RemoveEdge deletes an edge by id. The source keeps its connection while
// another edge still links the same pair.
func (s *Store) RemoveEdge(edgeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.edges {
		if e.ID != edgeID {
			continue
		}
		s.edges = append(s.edges[:i], s.edges[i+1:]...)
		if !s.linked(e.Source, e.Target) {
			if si := s.indexOf(e.Source); si >= 0 {
				s.nodes[si].Connections = without(s.nodes[si].Connections, e.Target)
			}
		}
		s.version++
		return true
	}
	return false
}

// SetNodeField merges one field into the node's data. For registered node
// types the field must be declared and the value must match its parameter
// type. A nil value removes the field.
func (s *Store) SetNodeField(id, field string, value any) error {
	if field == "" {
		return domain.NewError(domain.KindValidation, "field name is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	if s.registry != nil {
		if err := s.registry.ValidateField(s.nodes[i].Type, field, value); err != nil {
			return err
		}
	}
	if s.nodes[i].Data == nil {
		s.nodes[i].Data = make(map[string]any)
	}
	if value == nil {
		delete(s.nodes[i].Data, field)
	} else {
		s.nodes[i].Data[field] = domain.CloneValue(value)
	}
	s.version++
	return nil
}

// MoveNode updates a node's canvas position.
func (s *Store) MoveNode(id string, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return notFound(id)
	}
	s.nodes[i].Position = pos
	s.version++
	return nil
}

// Select marks id as the only selected node. An empty id clears the selection.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.indexOf(id) < 0 {
		return notFound(id)
	}
	for i := range s.nodes {
		s.nodes[i].Selected = s.nodes[i].ID == id
	}
	s.version++
	return nil
}

// Selected returns the id of the selected node, if any.
func (s *Store) Selected() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.Selected {
			return n.ID, true
		}
	}
	return "", false
}

// Snapshot returns a deep copy of the graph including status and version.
func (s *Store) Snapshot() *domain.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g := &domain.Graph{
		ID:      s.id,
		Name:    s.name,
		Nodes:   make([]domain.Node, len(s.nodes)),
		Edges:   append([]domain.Edge{}, s.edges...),
		Status:  make(map[string]domain.NodeStatus),
		Version: s.version,
	}
	for i, n := range s.nodes {
		g.Nodes[i] = n.Clone()
		if st := s.statusLocked(n.ID); st != domain.StatusIdle {
			g.Status[n.ID] = st
		}
	}
	return g
}

func (s *Store) indexOf(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) linked(source, target string) bool {
	for _, e := range s.edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	if len(ids) == 0 {
		return ids
	}
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func notFound(id string) error {
	return domain.NewError(domain.KindNotFound, fmt.Sprintf("node %q", id), domain.ErrNodeNotFound)
}
