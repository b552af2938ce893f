package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seaward-io/seaward/pkg/token"
)

func TestReindexRebuildsFromRecords(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "alice", "svc-a", nil)
	env.create(t, "bob", "svc-b", nil)
	_, err := env.reg.Delete(context.Background(), DeleteRequest{User: "bob", Token: "svc-b"})
	require.NoError(t, err)

	// Capture the old shard keys, then rebuild.
	oldDir, err := env.reg.OwnersMap(context.Background())
	require.NoError(t, err)

	tokens, err := env.reg.TokenNames(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"svc-a", "svc-b"}, tokens)

	require.NoError(t, env.reg.Reindex(context.Background(), tokens))

	newDir, err := env.reg.OwnersMap(context.Background())
	require.NoError(t, err)
	require.Len(t, newDir, 2)

	// Fresh shard keys were minted and the old ones removed.
	for owner, oldKey := range oldDir {
		assert.NotEqual(t, oldKey, newDir[owner])
		var gone Shard
		err := env.store.Fetch(context.Background(), oldKey, true, &gone)
		assert.Error(t, err)
	}

	// Entries reflect the live records, tombstones included.
	entryA, ok := env.shardFor(t, "alice")["svc-a"]
	require.True(t, ok)
	assert.False(t, entryA.Deleted)

	entryB, ok := env.shardFor(t, "bob")["svc-b"]
	require.True(t, ok)
	assert.True(t, entryB.Deleted)
}

func TestReindexRepairsMissingEntry(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "alice", "svc", nil)

	// Damage the index by dropping the directory entirely.
	require.NoError(t, env.store.Delete(context.Background(), DirectoryKey))
	entries, err := env.reg.ListTokens(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	tokens, err := env.reg.TokenNames(context.Background())
	require.NoError(t, err)
	require.NoError(t, env.reg.Reindex(context.Background(), tokens))

	entries, err = env.reg.ListTokens(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "svc", entries[0]["token"])
}

func TestReindexDropsOwnerlessTokens(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "alice", "svc", nil)

	// A legacy record without an owner cannot be indexed.
	require.NoError(t, env.store.Store(context.Background(), "legacy",
		token.Record{"cmd": "/old", "version": "0"}))

	require.NoError(t, env.reg.Reindex(context.Background(), []string{"svc", "legacy"}))

	dir, err := env.reg.OwnersMap(context.Background())
	require.NoError(t, err)
	assert.Len(t, dir, 1)
	_, ok := env.shardFor(t, "alice")["svc"]
	assert.True(t, ok)
}

func TestReindexBroadcastsIndexRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "alice", "svc", nil)
	before := len(env.peers.notifications)

	require.NoError(t, env.reg.Reindex(context.Background(), []string{"svc"}))

	require.Len(t, env.peers.notifications, before+1)
	last := env.peers.notifications[len(env.peers.notifications)-1]
	assert.Equal(t, true, last["index"])
}

func TestTokenNamesExcludesIndexKeys(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "alice", "svc-a", nil)
	env.create(t, "bob", "svc-b", nil)

	tokens, err := env.reg.TokenNames(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"svc-a", "svc-b"}, tokens)
}

func TestRefreshRequests(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "alice", "svc", nil)

	// Token, token+owner, and index refreshes all succeed against live
	// state; a refresh for an absent token is not an error.
	for _, req := range []RefreshRequest{
		{Token: "svc"},
		{Token: "svc", Owner: "alice"},
		{Token: "ghost"},
		{Index: true},
	} {
		assert.NoError(t, env.reg.Refresh(context.Background(), req))
	}
}
