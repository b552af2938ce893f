package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := map[string]any{"cmd": "/usr/bin/svc", "cpus": 2}
	require.NoError(t, store.Store(ctx, "svc", in))

	var out map[string]any
	require.NoError(t, store.Fetch(ctx, "svc", false, &out))
	assert.Equal(t, "/usr/bin/svc", out["cmd"])
	assert.Equal(t, float64(2), out["cpus"])
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	var out map[string]any
	err := store.Fetch(context.Background(), "missing", false, &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreFetchNeverAliases(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "svc", map[string]any{"cpus": 1}))

	var first map[string]any
	require.NoError(t, store.Fetch(ctx, "svc", false, &first))
	first["cpus"] = 99

	var second map[string]any
	require.NoError(t, store.Fetch(ctx, "svc", false, &second))
	assert.Equal(t, float64(1), second["cpus"])
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "svc", "v"))
	require.NoError(t, store.Delete(ctx, "svc"))

	var out string
	assert.ErrorIs(t, store.Fetch(ctx, "svc", false, &out), ErrNotFound)
	// Deleting an absent key is fine.
	assert.NoError(t, store.Delete(ctx, "svc"))
}

func TestMemoryStoreKeysSorted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, k := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, store.Store(ctx, k, k))
	}

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, keys)
}

func TestMemoryStoreHonorsContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out string
	assert.Error(t, store.Fetch(ctx, "k", false, &out))
	assert.Error(t, store.Store(ctx, "k", "v"))
	assert.Error(t, store.Delete(ctx, "k"))
}
