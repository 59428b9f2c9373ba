package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrDSNRequired = errors.New("pgstore: dsn is required")

// Store keeps cache entries in a single review_cache table.
type Store struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrDSNRequired
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS review_cache (
  key TEXT PRIMARY KEY,
  value BYTEA NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, fmt.Errorf("pgstore: key is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, false, fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM review_cache WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("pgstore: key is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO review_cache (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM review_cache WHERE key = $1`, strings.TrimSpace(key))
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM review_cache`)
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
