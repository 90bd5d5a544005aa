package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a RecordStore backed by a pgx pool.
type Store struct {
	db *pgxpool.Pool
}

// New creates a store on an existing pool. Call CreateSchema before first use.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create stores data under a fresh id.
func (s *Store) Create(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx,
		`INSERT INTO weave_records (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, []byte(data),
	)
	if err != nil {
		return "", fmt.Errorf("postgres: create record: %w", err)
	}
	return id, nil
}

// Put creates or replaces a record, keeping its creation time.
func (s *Store) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO weave_records (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, id, []byte(data),
	)
	if err != nil {
		return fmt.Errorf("postgres: put record: %w", err)
	}
	return nil
}

// Get retrieves a record.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.Record, error) {
	rec := domain.Record{Collection: collection}
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, data, created_at, updated_at FROM weave_records WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&rec.ID, &data, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("postgres: get record: %w", err)
	}
	rec.Data = json.RawMessage(data)
	return &rec, nil
}

// Update replaces the data of an existing record.
func (s *Store) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE weave_records SET data = $1, updated_at = NOW() WHERE collection = $2 AND id = $3`,
		[]byte(data), collection, id,
	)
	if err != nil {
		return fmt.Errorf("postgres: update record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Delete removes a record. No error if it doesn't exist.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM weave_records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("postgres: delete record: %w", err)
	}
	return nil
}

// List returns the records of a collection ordered by creation time.
// Returns an empty slice (not nil) if none found.
func (s *Store) List(ctx context.Context, collection string) ([]domain.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, data, created_at, updated_at FROM weave_records
		WHERE collection = $1 ORDER BY created_at, seq`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list records: %w", err)
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		rec := domain.Record{Collection: collection}
		var data []byte
		if err := rows.Scan(&rec.ID, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}
		rec.Data = json.RawMessage(data)
		out = append(out, rec)
	}
	return out, rows.Err()
}
