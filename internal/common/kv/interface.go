package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
// Absence is a normal state, not a failure: an absent flag means "false",
// an absent note means "no note".
var ErrNotFound = errors.New("kv: key not found")

// Store defines the unified interface for the local key-value store.
// This abstraction allows switching between implementations (SQLite file,
// Redis, in-memory) without changing reconciliation logic.
//
// There are no transactional guarantees across keys; callers must tolerate
// partial application if the process dies between calls.
type Store interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store
	Close() error
}
