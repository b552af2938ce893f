package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// CachedStore decorates a Store with a process-local read-through cache.
//
// Fetch with refresh=false serves from the cache when possible; with
// refresh=true it always reads the inner store and repopulates the cache,
// which is how the peer-refresh protocol invalidates stale entries on
// sibling replicas. Writes on this replica update the cache in place, so
// local reads always observe local writes.
//
// Cached entries hold encoded JSON, never decoded maps, so callers cannot
// mutate cache contents through a fetched value.
type CachedStore struct {
	inner Store

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewCachedStore wraps inner with a read-through cache.
func NewCachedStore(inner Store) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: make(map[string][]byte),
	}
}

// Fetch reads key, serving from cache unless refresh is set.
func (s *CachedStore) Fetch(ctx context.Context, key string, refresh bool, out any) error {
	if !refresh {
		s.mu.RLock()
		raw, ok := s.cache[key]
		s.mu.RUnlock()
		if ok {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("failed to decode cached value at %s: %w", key, err)
			}
			return nil
		}
	}

	var value json.RawMessage
	if err := s.inner.Fetch(ctx, key, refresh, &value); err != nil {
		if err == ErrNotFound {
			// A refresh that finds nothing must also forget the key.
			s.mu.Lock()
			delete(s.cache, key)
			s.mu.Unlock()
		}
		return err
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()

	if err := json.Unmarshal(value, out); err != nil {
		return fmt.Errorf("failed to decode value at %s: %w", key, err)
	}
	return nil
}

// Store writes through to the inner store and updates the cache.
func (s *CachedStore) Store(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	if err := s.inner.Store(ctx, key, json.RawMessage(raw)); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = raw
	s.mu.Unlock()
	return nil
}

// Delete removes key from the inner store and the cache.
func (s *CachedStore) Delete(ctx context.Context, key string) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// Keys delegates to the inner store; key enumeration is never cached.
func (s *CachedStore) Keys(ctx context.Context) ([]string, error) {
	return s.inner.Keys(ctx)
}

// Close closes the inner store.
func (s *CachedStore) Close() error {
	return s.inner.Close()
}
