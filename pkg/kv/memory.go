package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore implements Store using in-memory storage.
//
// Suitable for tests and ephemeral deployments. Values are stored as
// encoded JSON so fetches never alias a caller's map.
//
// Thread safety: all operations are protected by a read-write mutex.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Fetch reads the value at key into out. The refresh flag is a no-op:
// the map itself is authoritative.
func (s *MemoryStore) Fetch(ctx context.Context, key string, refresh bool, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode value at %s: %w", key, err)
	}
	return nil
}

// Store writes value at key.
func (s *MemoryStore) Store(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Keys lists every key in lexical order.
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
