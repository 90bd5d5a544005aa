// Package sqlite implements ports.RecordStore on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const recordTable = "weave_records"

// Store persists records in a single SQLite table keyed by (collection, id).
type Store struct {
	db    *sql.DB
	owned bool
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY and keeps
	// :memory: databases alive.
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New creates a SQLite-backed store on an existing handle and ensures schema.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (collection, id)
		);`, recordTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created ON %s(collection, created_at);`, recordTable, recordTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure sqlite schema: %w", err)
		}
	}
	return nil
}

// Create stores data under a fresh id.
func (s *Store) Create(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().UnixMicro()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	`, recordTable), collection, id, []byte(data), now, now)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// Put creates or replaces a record, keeping its creation time.
func (s *Store) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	now := time.Now().UTC().UnixMicro()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, recordTable), collection, id, []byte(data), now, now)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Get retrieves a record.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, data, created_at, updated_at FROM %s WHERE collection = ? AND id = ?
	`, recordTable), collection, id)
	rec, err := scanRecord(row.Scan, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	return rec, err
}

// Update replaces the data of an existing record.
func (s *Store) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET data = ?, updated_at = ? WHERE collection = ? AND id = ?
	`, recordTable), []byte(data), time.Now().UTC().UnixMicro(), collection, id)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE collection = ? AND id = ?`, recordTable), collection, id)
	return err
}

// List returns the records of a collection ordered by creation time.
func (s *Store) List(ctx context.Context, collection string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, data, created_at, updated_at FROM %s WHERE collection = ?
		ORDER BY created_at ASC, rowid ASC
	`, recordTable), collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan, collection)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func scanRecord(scan func(...any) error, collection string) (*domain.Record, error) {
	var (
		rec              domain.Record
		data             []byte
		created, updated int64
	)
	if err := scan(&rec.ID, &data, &created, &updated); err != nil {
		return nil, err
	}
	rec.Collection = collection
	rec.Data = json.RawMessage(data)
	rec.CreatedAt = time.UnixMicro(created).UTC()
	rec.UpdatedAt = time.UnixMicro(updated).UTC()
	return &rec, nil
}
