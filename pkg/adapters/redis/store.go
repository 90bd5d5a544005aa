package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "weave:"

// Store implements ports.RecordStore using Redis.
//
// Each record is a JSON string at {prefix}{collection}:{id}. A sorted set at
// {prefix}{collection}:index orders ids by creation time; entries whose key
// expired are pruned lazily by List.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for records.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(collection, id string) string {
	return s.prefix + collection + ":" + id
}

func (s *Store) indexKey(collection string) string {
	return s.prefix + collection + ":index"
}

// Create stores data under a fresh id.
func (s *Store) Create(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	rec := domain.Record{ID: id, Collection: collection, Data: data, CreatedAt: now, UpdatedAt: now}
	return id, s.save(ctx, &rec)
}

// Put creates or replaces a record, keeping its creation time.
func (s *Store) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	now := time.Now().UTC()
	rec, err := s.Get(ctx, collection, id)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		rec = &domain.Record{ID: id, Collection: collection, CreatedAt: now}
	case err != nil:
		return err
	}
	rec.Data = data
	rec.UpdatedAt = now
	return s.save(ctx, rec)
}

// Update replaces the data of an existing record.
func (s *Store) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	rec, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	rec.Data = data
	rec.UpdatedAt = time.Now().UTC()
	return s.save(ctx, rec)
}

func (s *Store) save(ctx context.Context, rec *domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(rec.Collection, rec.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(rec.Collection), backend.Z{
		Score:  float64(rec.CreatedAt.UnixMicro()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves a record.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.Record, error) {
	val, err := s.client.Get(ctx, s.key(collection, id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var rec domain.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(collection, id))
	pipe.ZRem(ctx, s.indexKey(collection), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the records of a collection ordered by creation time.
// Index entries whose record expired are removed on the way.
func (s *Store) List(ctx context.Context, collection string) ([]domain.Record, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(collection, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	out := make([]domain.Record, 0, len(vals))
	var expired []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", ids[i], err)
		}
		out = append(out, rec)
	}
	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(collection), expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired records: %w", err)
		}
	}
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
