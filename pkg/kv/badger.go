package kv

import (
	"context"
	"encoding/json"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/seaward-io/seaward/internal/logger"
)

// BadgerStore implements Store on an embedded BadgerDB database. Values
// are JSON-encoded. This is the durable backend for a registry replica.
type BadgerStore struct {
	db *badgerdb.DB
}

// BadgerConfig configures the embedded database.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory runs badger without persistence (tests, dev).
	InMemory bool
}

// NewBadgerStore opens (or creates) the database at the configured path.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	// Badger logs through its own interface; keep it quiet and let the
	// adapter log failures with context instead.
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug("badger store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &BadgerStore{db: db}, nil
}

// Fetch reads the value at key into out. Badger reads are always
// authoritative for this replica, so refresh is a no-op here; the flag
// matters one layer up, in CachedStore.
func (s *BadgerStore) Fetch(ctx context.Context, key string, refresh bool, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, out); err != nil {
				return fmt.Errorf("failed to decode value at %s: %w", key, err)
			}
			return nil
		})
	})
}

// Store writes value at key.
func (s *BadgerStore) Store(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(key), raw); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	})
}

// Keys lists every key via a key-only iteration.
func (s *BadgerStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
