package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/seaward-io/seaward/pkg/kv"
	"github.com/seaward-io/seaward/pkg/token"
)

// Persisted index layout. Tokens live at their own name; every index key
// starts with "^", which the token name validator forbids, so the two
// namespaces cannot collide.
const (
	// DirectoryKey is the fixed key of the owner directory.
	DirectoryKey = "^TOKEN_OWNERS"

	// shardKeyPrefix prefixes per-owner shard keys. The suffix is a
	// freshly minted UUID; shard keys are never reused across rebuilds.
	shardKeyPrefix = "^TOKEN_OWNERS_"

	// indexKeyPrefix marks every key that belongs to the index rather
	// than to a token record.
	indexKeyPrefix = "^"
)

// Directory maps each owner to the opaque key of their shard.
type Directory map[string]string

// Shard maps each of an owner's tokens to its index entry.
type Shard map[string]IndexEntry

// IndexEntry is the per-token entry in an owner shard. Its hash always
// equals the current hash of the token's sanitized payload and deleted
// mirrors the token's tombstone.
type IndexEntry struct {
	Hash           string `json:"hash"`
	Deleted        bool   `json:"deleted"`
	LastUpdateTime int64  `json:"last-update-time"`
}

// makeIndexEntry produces the canonical shard-entry shape.
func makeIndexEntry(hash string, deleted bool, lastUpdateTime int64) IndexEntry {
	return IndexEntry{
		Hash:           hash,
		Deleted:        deleted,
		LastUpdateTime: lastUpdateTime,
	}
}

// newShardKey mints a fresh opaque shard key.
func newShardKey() string {
	return shardKeyPrefix + uuid.NewString()
}

// IsIndexKey reports whether a KV key belongs to the index namespace.
func IsIndexKey(key string) bool {
	return strings.HasPrefix(key, indexKeyPrefix)
}

// loadDirectory reads the owner directory, treating an absent key as an
// empty directory.
func (r *Registry) loadDirectory(ctx context.Context, refresh bool) (Directory, error) {
	var dir Directory
	err := r.kv.Fetch(ctx, DirectoryKey, refresh, &dir)
	if err == kv.ErrNotFound {
		return Directory{}, nil
	}
	if err != nil {
		return nil, token.NewInternalError("failed to read owner directory: %v", err)
	}
	if dir == nil {
		dir = Directory{}
	}
	return dir, nil
}

// loadShard reads an owner shard by key, treating an absent key as an
// empty shard.
func (r *Registry) loadShard(ctx context.Context, shardKey string, refresh bool) (Shard, error) {
	var shard Shard
	err := r.kv.Fetch(ctx, shardKey, refresh, &shard)
	if err == kv.ErrNotFound {
		return Shard{}, nil
	}
	if err != nil {
		return nil, token.NewInternalError("failed to read owner shard %s: %v", shardKey, err)
	}
	if shard == nil {
		shard = Shard{}
	}
	return shard, nil
}

// ensureOwnerKey returns the owner's shard key, minting a fresh one and
// persisting the updated directory when the owner is new. Must run inside
// the token lock.
func (r *Registry) ensureOwnerKey(ctx context.Context, dir Directory, owner string) (string, error) {
	if owner == "" {
		return "", token.NewInternalError("cannot index a token with a blank owner")
	}
	if key, ok := dir[owner]; ok {
		return key, nil
	}

	key := newShardKey()
	dir[owner] = key
	if err := r.kv.Store(ctx, DirectoryKey, dir); err != nil {
		return "", token.NewInternalError("failed to update owner directory: %v", err)
	}
	return key, nil
}

// updateShardEntry inserts or replaces tok's entry in owner's shard.
// Must run inside the token lock.
func (r *Registry) updateShardEntry(ctx context.Context, dir Directory, owner, tok string, entry IndexEntry) error {
	shardKey, err := r.ensureOwnerKey(ctx, dir, owner)
	if err != nil {
		return err
	}
	shard, err := r.loadShard(ctx, shardKey, true)
	if err != nil {
		return err
	}
	shard[tok] = entry
	if err := r.kv.Store(ctx, shardKey, shard); err != nil {
		return token.NewInternalError("failed to update owner shard %s: %v", shardKey, err)
	}
	return nil
}

// removeShardEntry deletes tok's entry from owner's shard, if both exist.
// Must run inside the token lock.
func (r *Registry) removeShardEntry(ctx context.Context, dir Directory, owner, tok string) error {
	shardKey, ok := dir[owner]
	if !ok {
		return nil
	}
	shard, err := r.loadShard(ctx, shardKey, true)
	if err != nil {
		return err
	}
	if _, ok := shard[tok]; !ok {
		return nil
	}
	delete(shard, tok)
	if err := r.kv.Store(ctx, shardKey, shard); err != nil {
		return token.NewInternalError("failed to update owner shard %s: %v", shardKey, err)
	}
	return nil
}
