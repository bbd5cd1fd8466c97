package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ratel-client/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_snapshots (
	key        TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL
)`

// Store is a PostgreSQL-backed snapshot slot.
type Store struct {
	pool *pgxpool.Pool
	key  string
}

// New creates the snapshot table if needed and returns a store for key.
func New(ctx context.Context, pool *pgxpool.Pool, key string) (*Store, error) {
	if key == "" {
		return nil, fmt.Errorf("snapshot key is required")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool, key: key}, nil
}

// Save implements session.Durable.
func (s *Store) Save(ctx context.Context, rec session.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_snapshots (key, record, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			record = EXCLUDED.record,
			saved_at = EXCLUDED.saved_at`,
		s.key, data, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Load implements session.Durable.
func (s *Store) Load(ctx context.Context) (*session.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM session_snapshots WHERE key = $1`, s.key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &rec, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
