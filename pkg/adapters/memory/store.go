package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.RecordStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]map[string]domain.Record
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]domain.Record),
		now:  time.Now,
	}
}

// Create stores data under a fresh id.
func (s *Store) Create(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	return id, s.Put(ctx, collection, id, data)
}

// Put creates or replaces a record, keeping its creation time.
func (s *Store) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[collection]
	if !ok {
		bucket = make(map[string]domain.Record)
		s.data[collection] = bucket
	}
	now := s.now()
	rec, exists := bucket[id]
	if !exists {
		rec = domain.Record{ID: id, Collection: collection, CreatedAt: now}
	}
	// Copy so callers can't mutate store state through the slice
	rec.Data = append(json.RawMessage(nil), data...)
	rec.UpdatedAt = now
	bucket[id] = rec
	return nil
}

// Get retrieves a record.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[collection][id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	rec.Data = append(json.RawMessage(nil), rec.Data...)
	return &rec, nil
}

// Update replaces the data of an existing record.
func (s *Store) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[collection][id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec.Data = append(json.RawMessage(nil), data...)
	rec.UpdatedAt = s.now()
	s.data[collection][id] = rec
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], id)
	return nil
}

// List returns the records of a collection ordered by creation time.
func (s *Store) List(ctx context.Context, collection string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, 0, len(s.data[collection]))
	for _, rec := range s.data[collection] {
		rec.Data = append(json.RawMessage(nil), rec.Data...)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
