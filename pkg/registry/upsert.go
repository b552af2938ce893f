package registry

import (
	"context"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/token"
)

// UpsertRequest describes a create-or-update run of the mutation
// pipeline. Body is the flat request payload with the token name already
// split off.
type UpsertRequest struct {
	User        string
	Token       string
	Body        token.Record
	IfMatch     string
	Admin       bool
	RequestHost string
}

// UpsertResult reports a completed pipeline run.
type UpsertResult struct {
	Record   token.Record
	Hash     string
	Created  bool
	NoChange bool
}

// Upsert runs the create/update pipeline: pre-lock validation, then under
// the token lock authorization, optimistic-concurrency check, idempotence
// short-circuit, quota, the token write and both index updates, and after
// the lock is released a best-effort peer refresh broadcast.
//
// Observable write order inside the pipeline: token record, then the new
// owner's shard entry, then the old owner's shard removal. A reader never
// sees the token missing from both shards, though it may transiently see
// it in both.
func (r *Registry) Upsert(ctx context.Context, req UpsertRequest) (*UpsertResult, error) {
	res, err := r.upsert(ctx, req)
	op := "update"
	if res != nil && res.Created {
		op = "create"
	}
	observe(op, err)
	return res, err
}

func (r *Registry) upsert(ctx context.Context, req UpsertRequest) (*UpsertResult, error) {
	if err := token.ValidateName(req.Token, r.reservedHosts); err != nil {
		return nil, err
	}
	if err := token.ValidateRequest(req.Token, req.Body, req.Admin); err != nil {
		return nil, err
	}

	var res *UpsertResult
	var newOwner string
	err := r.withTokenLock(ctx, func(ctx context.Context) error {
		existing, err := r.fetchToken(ctx, req.Token, true)
		if err != nil {
			return err
		}

		newRec, err := r.assemble(req, existing)
		if err != nil {
			return err
		}
		newOwner = newRec.Owner()

		if err := r.authorizeUpsert(req, existing, newRec); err != nil {
			return err
		}
		if err := checkIfMatch(req.Token, req.IfMatch, existing); err != nil {
			return err
		}

		// Idempotence short-circuit: an identical user-editable payload
		// is a no-op and must not bump the update time or history. A
		// tombstoned record never short-circuits; like the If-Match
		// comparison, a soft-deleted token counts as absent, so an
		// identical repost revives it.
		if !req.Admin && existing != nil && !existing.Deleted() &&
			token.Equal(newRec.UserProjection(), existing.UserProjection()) {
			res = &UpsertResult{
				Record:   existing,
				Hash:     token.Hash(existing),
				NoChange: true,
			}
			return nil
		}

		dir, err := r.loadDirectory(ctx, true)
		if err != nil {
			return err
		}

		if !req.Admin && r.quota > 0 {
			if err := r.checkQuota(ctx, dir, newOwner, req.Token); err != nil {
				return err
			}
		}

		if r.validate != nil {
			if err := r.validate(serviceParameters(newRec)); err != nil {
				return token.NewValidationError("invalid service description for %s: %v", req.Token, err)
			}
		}

		stored := r.applyHistory(req, newRec, existing)
		if err := r.kv.Store(ctx, req.Token, stored); err != nil {
			return token.NewInternalError("failed to store token %s: %v", req.Token, err)
		}

		entry := makeIndexEntry(token.Hash(stored), false, stored.LastUpdateTime())
		if err := r.updateShardEntry(ctx, dir, newOwner, req.Token, entry); err != nil {
			return err
		}
		if prevOwner := existingOwner(existing); prevOwner != "" && prevOwner != newOwner {
			if err := r.removeShardEntry(ctx, dir, prevOwner, req.Token); err != nil {
				return err
			}
		}

		res = &UpsertResult{
			Record:  stored,
			Hash:    token.Hash(stored),
			Created: existing == nil || existing.Empty(),
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	if !res.NoChange {
		logger.Info("token written",
			"token", req.Token, "owner", newOwner, "user", req.User,
			"admin", req.Admin, "created", res.Created)
		r.notifyPeers(ctx, map[string]any{"token": req.Token, "owner": newOwner})
	}
	return res, nil
}

// assemble merges the request body over the pipeline defaults into the
// new token record: user-editable keys from the body, system metadata
// from the authoritative clock and calculator (or the body in admin
// mode), owner and root carried from the existing record when unset.
func (r *Registry) assemble(req UpsertRequest, existing token.Record) (token.Record, error) {
	rec := make(token.Record)
	for k, v := range req.Body {
		if token.UserEditableKeys(k) {
			rec[k] = v
		}
	}

	owner := rec.Owner()
	if owner == "" {
		owner = existingOwner(existing)
	}
	if owner == "" {
		owner = req.User
	}
	rec[token.KeyOwner] = owner

	if rec.Cluster() == "" {
		rec[token.KeyCluster] = r.clusters.Calculate(req.RequestHost)
	}

	root := ""
	if existing != nil {
		root = existing.Root()
	}
	if root == "" {
		root = r.root
	}
	updateTime := r.nowMillis()
	updateUser := req.User

	if req.Admin {
		if v, ok := req.Body[token.KeyRoot].(string); ok && v != "" {
			root = v
		}
		if v, ok := req.Body[token.KeyLastUpdateUser].(string); ok && v != "" {
			updateUser = v
		}
		if v, ok := req.Body[token.KeyLastUpdateTime]; ok {
			ms, err := token.ParseUpdateTime(v)
			if err != nil {
				return nil, err
			}
			updateTime = ms
		}
	}

	rec[token.KeyRoot] = root
	rec[token.KeyLastUpdateTime] = updateTime
	rec[token.KeyLastUpdateUser] = updateUser
	return rec, nil
}

// authorizeUpsert applies the mode-specific authorization rules with the
// existing record already in hand.
func (r *Registry) authorizeUpsert(req UpsertRequest, existing, newRec token.Record) error {
	if req.Admin {
		if !r.authz.CanAdminister(req.User, req.Token, newRec) {
			return token.NewForbiddenError(req.User, "administer token", req.Token)
		}
		if existing != nil && !existing.Empty() && req.IfMatch == "" {
			return token.NewValidationError(
				"an If-Match header is required when updating an existing token in admin mode")
		}
		return nil
	}

	if runAs := newRec.RunAsUser(); runAs != "" && runAs != token.AllUsers {
		if !r.authz.CanRunAs(req.User, runAs) {
			return token.NewForbiddenError(req.User, "run as user "+runAs, req.Token)
		}
	}

	prevOwner := existingOwner(existing)
	newOwner := newRec.Owner()
	switch {
	case prevOwner != "" && prevOwner != newOwner:
		if !r.authz.CanManage(req.User, req.Token, existing) {
			return token.NewForbiddenError(req.User, "manage token", req.Token)
		}
	case prevOwner == "":
		if !r.authz.CanRunAs(req.User, newOwner) {
			return token.NewForbiddenError(req.User, "create tokens owned by "+newOwner, req.Token)
		}
	}
	return nil
}

// checkQuota enforces the per-owner live-token quota. The token's own
// slot never counts against it, so rewriting an existing token always
// passes. Admin mode skips this entirely.
func (r *Registry) checkQuota(ctx context.Context, dir Directory, owner, tok string) error {
	shardKey, ok := dir[owner]
	if !ok {
		return nil
	}
	shard, err := r.loadShard(ctx, shardKey, true)
	if err != nil {
		return err
	}

	live := 0
	for name, entry := range shard {
		if name == tok || entry.Deleted {
			continue
		}
		live++
	}
	if live >= r.quota {
		return token.NewQuotaError(owner, r.quota)
	}
	return nil
}

// applyHistory attaches the bounded previous chain to the record about to
// be written: an admin-supplied previous wins, otherwise the existing raw
// record is pushed.
func (r *Registry) applyHistory(req UpsertRequest, newRec, existing token.Record) token.Record {
	if req.Admin {
		if prev, ok := req.Body[token.KeyPrevious].(map[string]any); ok {
			return token.WithHistory(newRec, token.Record(prev), r.historyDepth)
		}
	}
	if existing == nil {
		return token.WithHistory(newRec, nil, r.historyDepth)
	}
	return token.WithHistory(newRec, existing, r.historyDepth)
}

// serviceParameters projects the recognized service parameters out of a
// record for the external validator.
func serviceParameters(rec token.Record) token.Record {
	out := make(token.Record)
	for k, v := range rec {
		if token.ParameterKeys[k] {
			out[k] = v
		}
	}
	return out
}

// existingOwner returns the owner of an existing record, or "".
func existingOwner(rec token.Record) string {
	if rec == nil {
		return ""
	}
	return rec.Owner()
}
