package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// LocalStore is the fallback cache: a flat mapping from string keys to JSON
// values.  It always holds the most recent locally known value of a key.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// SQLiteLocalStore keeps the key space in a single kv table of an embedded
// SQLite file next to the binary.
type SQLiteLocalStore struct {
	db *sqlx.DB
}

// NewSQLiteLocalStore wraps an open SQLite handle.  Call EnsureSchema once
// before first use.
func NewSQLiteLocalStore(db *sqlx.DB) *SQLiteLocalStore { return &SQLiteLocalStore{db: db} }

// EnsureSchema creates the kv table.
func (s *SQLiteLocalStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Get returns the raw value of key or ErrNotFound.
func (s *SQLiteLocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v string
	if err := s.db.GetContext(ctx, &v, `SELECT value FROM kv WHERE key = ?`, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(v), nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteLocalStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Remove deletes key.  Removing a missing key is not an error.
func (s *SQLiteLocalStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Keys lists every key starting with prefix in lexical order.
func (s *SQLiteLocalStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	// substr instead of LIKE: keys contain '_' which LIKE treats as a wildcard
	var keys []string
	err := s.db.SelectContext(ctx, &keys,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
