package registry

import (
	"context"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/token"
)

// Reindex rebuilds the owner directory and every per-owner shard from the
// given token names. Fresh shard keys are minted and the new shards are
// written before the directory is flipped, so a concurrent reader sees
// either the old directory pointing at still-intact old shards or the new
// directory pointing at already-written new shards: there is no window
// where an owner lookup yields an empty shard. Old shard keys are deleted
// last.
//
// Tokens with no owner on record are dropped from the index.
func (r *Registry) Reindex(ctx context.Context, tokens []string) error {
	err := r.reindex(ctx, tokens)
	observe("reindex", err)
	if err != nil {
		return err
	}
	r.notifyPeers(ctx, map[string]any{"index": true})
	return nil
}

func (r *Registry) reindex(ctx context.Context, tokens []string) error {
	return r.withTokenLock(ctx, func(ctx context.Context) error {
		oldDir, err := r.loadDirectory(ctx, true)
		if err != nil {
			return err
		}

		// Group tokens by their current owner.
		shards := make(map[string]Shard)
		for _, tok := range tokens {
			rec, err := r.fetchToken(ctx, tok, true)
			if err != nil {
				return err
			}
			if rec == nil || rec.Empty() {
				continue
			}
			owner := rec.Owner()
			if owner == "" {
				logger.Warn("token has no owner; dropping from index", "token", tok)
				continue
			}
			shard, ok := shards[owner]
			if !ok {
				shard = Shard{}
				shards[owner] = shard
			}
			shard[tok] = makeIndexEntry(token.Hash(rec), rec.Deleted(), rec.LastUpdateTime())
		}

		// Write every new shard under a fresh key, then flip the
		// directory in one write.
		newDir := make(Directory, len(shards))
		for owner, shard := range shards {
			key := newShardKey()
			if err := r.kv.Store(ctx, key, shard); err != nil {
				return token.NewInternalError("failed to write shard for owner %s: %v", owner, err)
			}
			newDir[owner] = key
		}
		if err := r.kv.Store(ctx, DirectoryKey, newDir); err != nil {
			return token.NewInternalError("failed to write owner directory: %v", err)
		}

		// Retire old shards that are no longer referenced.
		current := make(map[string]bool, len(newDir))
		for _, key := range newDir {
			current[key] = true
		}
		for owner, key := range oldDir {
			if current[key] {
				continue
			}
			if err := r.kv.Delete(ctx, key); err != nil {
				return token.NewInternalError("failed to delete old shard for owner %s: %v", owner, err)
			}
		}

		logger.Info("token index rebuilt", "tokens", len(tokens), "owners", len(newDir))
		return nil
	})
}

// TokenNames enumerates every token name in the KV store by filtering out
// index keys. This is the lister consumed by the reindex endpoint.
func (r *Registry) TokenNames(ctx context.Context) ([]string, error) {
	keys, err := r.kv.Keys(ctx)
	if err != nil {
		return nil, token.NewInternalError("failed to enumerate tokens: %v", err)
	}
	tokens := keys[:0]
	for _, k := range keys {
		if !IsIndexKey(k) {
			tokens = append(tokens, k)
		}
	}
	return tokens, nil
}

// RefreshRequest is a peer cache-invalidation notification.
type RefreshRequest struct {
	Token string `json:"token,omitempty"`
	Owner string `json:"owner,omitempty"`
	Index bool   `json:"index,omitempty"`
}

// Refresh applies a peer notification to this replica: the named keys are
// re-read from the KV with the refresh flag set, repopulating any local
// read-through cache. Runs lock-free; it only performs reads.
func (r *Registry) Refresh(ctx context.Context, req RefreshRequest) error {
	if req.Index {
		dir, err := r.loadDirectory(ctx, true)
		if err != nil {
			return err
		}
		for _, shardKey := range dir {
			if _, err := r.loadShard(ctx, shardKey, true); err != nil {
				return err
			}
		}
	}

	if req.Token != "" {
		if _, err := r.fetchToken(ctx, req.Token, true); err != nil {
			return err
		}
		if req.Owner != "" {
			dir, err := r.loadDirectory(ctx, true)
			if err != nil {
				return err
			}
			if shardKey, ok := dir[req.Owner]; ok {
				if _, err := r.loadShard(ctx, shardKey, true); err != nil {
					return err
				}
			}
		}
	}

	logger.Debug("cache refreshed", "token", req.Token, "owner", req.Owner, "index", req.Index)
	return nil
}
