// Package kv provides a small key-value store interface with whole-value
// overwrite semantics. Values are opaque byte slices keyed by plain strings.
//
// The package includes a BadgerDB-backed implementation for durable state and
// an in-memory implementation for testing.
package kv

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")
)

// Store is the interface for a string-keyed value store.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// DeleteAll atomically removes multiple keys. Keys that do not exist
	// are skipped without error.
	DeleteAll(ctx context.Context, keys ...string) error

	// Close releases any resources held by the store.
	Close() error
}
