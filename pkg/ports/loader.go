package ports

import (
	"context"

	"github.com/aretw0/weave/pkg/domain"
)

// GraphSource loads and saves complete graph definitions.
type GraphSource interface {
	// Load returns the graph definition. Runtime status is never part of it.
	Load(ctx context.Context) (*domain.Graph, error)

	// Save writes the graph definition, replacing the previous one.
	Save(ctx context.Context, g *domain.Graph) error
}

// Watchable is implemented by sources that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that is signalled when the definition changes.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
