package memory

import (
	"context"
	"sync"

	"github.com/aretw0/weave/pkg/domain"
)

// Source implements ports.GraphSource over a graph held in memory.
type Source struct {
	mu    sync.RWMutex
	graph *domain.Graph
}

// NewSource creates a source seeded with g, which may be nil.
func NewSource(g *domain.Graph) *Source {
	s := &Source{}
	if g != nil {
		s.graph = definition(g)
	}
	return s
}

// Load returns a copy of the stored definition.
func (s *Source) Load(ctx context.Context) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return nil, domain.ErrGraphNotFound
	}
	return definition(s.graph), nil
}

// Save replaces the stored definition.
func (s *Source) Save(ctx context.Context, g *domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = definition(g)
	return nil
}

// definition deep copies g without runtime state.
func definition(g *domain.Graph) *domain.Graph {
	out := &domain.Graph{
		ID:    g.ID,
		Name:  g.Name,
		Nodes: make([]domain.Node, len(g.Nodes)),
		Edges: append([]domain.Edge(nil), g.Edges...),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}
