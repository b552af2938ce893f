package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgerTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store := newBadgerTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "svc", map[string]any{"cmd": "/x", "cpus": 2}))

	var out map[string]any
	require.NoError(t, store.Fetch(ctx, "svc", false, &out))
	assert.Equal(t, "/x", out["cmd"])
	assert.Equal(t, float64(2), out["cpus"])
}

func TestBadgerStoreNotFound(t *testing.T) {
	store := newBadgerTestStore(t)

	var out map[string]any
	err := store.Fetch(context.Background(), "missing", false, &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStoreDeleteAndKeys(t *testing.T) {
	store := newBadgerTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"bravo", "alpha", "^TOKEN_OWNERS"} {
		require.NoError(t, store.Store(ctx, k, k))
	}

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "bravo", "^TOKEN_OWNERS"}, keys)

	require.NoError(t, store.Delete(ctx, "alpha"))
	var out string
	assert.ErrorIs(t, store.Fetch(ctx, "alpha", false, &out), ErrNotFound)
	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, "alpha"))
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), "svc", "v1"))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	var out string
	require.NoError(t, reopened.Fetch(context.Background(), "svc", false, &out))
	assert.Equal(t, "v1", out)
}
