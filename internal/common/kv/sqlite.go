package kv

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore implements Store on a local SQLite file.
// This is the per-device durable store, the browser localStorage analog.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the store at the given path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}
	// A single writer avoids SQLITE_BUSY on concurrent mutations.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get retrieves the value for the given key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite get failed: %w", err)
	}
	return value, nil
}

// Set stores a key-value pair, overwriting any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite set failed: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete failed: %w", err)
	}
	return nil
}

// Keys returns all keys with the given prefix.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlite keys failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlite scan key failed: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite iterate keys failed: %w", err)
	}
	return keys, nil
}

// Ping verifies the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
