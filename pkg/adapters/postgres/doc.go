// Package postgres implements ports.RecordStore on PostgreSQL through a
// pgx connection pool. Record payloads are stored as JSONB.
package postgres
