// Package kv provides the key-value adapter the token registry runs on.
//
// The adapter maps opaque string keys to structured values and owns their
// encoding (JSON). Implementations:
//
//   - MemoryStore: mutex-guarded map, for tests and development
//   - BadgerStore: embedded BadgerDB, the durable backend
//   - CachedStore: read-through cache decorator; the refresh flag on Fetch
//     bypasses it and reads authoritative state
//
// Reads are eventually consistent across replicas that share a backend;
// writes by a single replica are read-your-writes on that replica.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Fetch when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the adapter interface consumed by the registry.
type Store interface {
	// Fetch reads the value at key into out (a pointer). When refresh is
	// true the read must bypass any local caching layer. Returns
	// ErrNotFound when the key is absent.
	Fetch(ctx context.Context, key string, refresh bool, out any) error

	// Store writes value at key, replacing any prior value.
	Store(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key in the store. Used by re-index to enumerate
	// token names; callers filter out index keys themselves.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the store's resources.
	Close() error
}
