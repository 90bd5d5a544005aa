package ports

import (
	"context"
	"encoding/json"

	"github.com/aretw0/weave/pkg/domain"
)

// RecordStore persists opaque JSON documents keyed by id within a collection.
// Implementations return domain.ErrRecordNotFound for unknown ids.
type RecordStore interface {
	// Create stores a new record under a generated id and returns that id.
	Create(ctx context.Context, collection string, data json.RawMessage) (string, error)

	// Put creates or replaces the record with the given id.
	Put(ctx context.Context, collection, id string, data json.RawMessage) error

	// Get retrieves a record.
	Get(ctx context.Context, collection, id string) (*domain.Record, error)

	// Update replaces the data of an existing record.
	Update(ctx context.Context, collection, id string, data json.RawMessage) error

	// Delete removes a record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// List returns every record of a collection ordered by creation time.
	List(ctx context.Context, collection string) ([]domain.Record, error)
}
