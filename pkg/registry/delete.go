package registry

import (
	"context"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/token"
)

// DeleteRequest describes a delete run of the mutation pipeline.
type DeleteRequest struct {
	User    string
	Token   string
	IfMatch string
	Hard    bool
}

// DeleteResult reports a completed delete. For a soft delete Hash is the
// ETag of the tombstoned record that was written back.
type DeleteResult struct {
	Owner string
	Hard  bool
	Hash  string
}

// Delete soft-deletes a token (tombstone plus history entry) or, with
// administrator authorization and an explicit version hash, removes the
// record and its shard entry entirely.
func (r *Registry) Delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error) {
	res, err := r.delete(ctx, req)
	observe("delete", err)
	return res, err
}

func (r *Registry) delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error) {
	if err := token.ValidateName(req.Token, r.reservedHosts); err != nil {
		return nil, err
	}

	var res *DeleteResult
	err := r.withTokenLock(ctx, func(ctx context.Context) error {
		existing, err := r.fetchToken(ctx, req.Token, true)
		if err != nil {
			return err
		}
		if existing == nil || existing.Empty() {
			return token.NewNotFoundError(req.Token)
		}

		if err := checkIfMatch(req.Token, req.IfMatch, existing); err != nil {
			return err
		}

		if req.Hard {
			if !r.authz.CanAdminister(req.User, req.Token, existing) {
				return token.NewForbiddenError(req.User, "hard-delete token", req.Token)
			}
			// A hard delete is unrecoverable; require proof the caller
			// saw the current version unless only a tombstone is left.
			if !existing.Deleted() && req.IfMatch == "" {
				return token.NewValidationError(
					"an If-Match header is required to hard-delete a live token")
			}
		} else {
			if !r.authz.CanManage(req.User, req.Token, existing) {
				return token.NewForbiddenError(req.User, "delete token", req.Token)
			}
		}

		owner := existing.Owner()
		dir, err := r.loadDirectory(ctx, true)
		if err != nil {
			return err
		}

		if req.Hard {
			if err := r.kv.Delete(ctx, req.Token); err != nil {
				return token.NewInternalError("failed to delete token %s: %v", req.Token, err)
			}
			if owner == "" {
				// Legacy records may lack an owner; there is no shard
				// entry to remove in that case.
				logger.Warn("hard-deleted token had no owner; skipping index update", "token", req.Token)
			} else if err := r.removeShardEntry(ctx, dir, owner, req.Token); err != nil {
				return err
			}
			res = &DeleteResult{Owner: owner, Hard: true}
			return nil
		}

		stored := existing.Clone()
		stored[token.KeyDeleted] = true
		stored[token.KeyLastUpdateTime] = r.nowMillis()
		stored[token.KeyLastUpdateUser] = req.User
		stored = token.WithHistory(stored, existing, r.historyDepth)

		if err := r.kv.Store(ctx, req.Token, stored); err != nil {
			return token.NewInternalError("failed to store token %s: %v", req.Token, err)
		}

		hash := token.Hash(stored)
		if owner == "" {
			logger.Warn("soft-deleted token has no owner; skipping index update", "token", req.Token)
		} else {
			entry := makeIndexEntry(hash, true, stored.LastUpdateTime())
			if err := r.updateShardEntry(ctx, dir, owner, req.Token, entry); err != nil {
				return err
			}
		}
		res = &DeleteResult{Owner: owner, Hash: hash}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("token deleted",
		"token", req.Token, "owner", res.Owner, "user", req.User, "hard", req.Hard)
	r.notifyPeers(ctx, map[string]any{"token": req.Token, "owner": res.Owner})
	return res, nil
}
