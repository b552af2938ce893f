// Package registry implements the Seaward token registry: the durable
// token data model over a shared key-value store, the owner index that
// supports enumeration and quota enforcement, optimistic concurrency via
// content hashes, soft and hard deletion with auditable history, and the
// peer-refresh fan-out that keeps replicas cache-coherent.
//
// All mutations run through a single named lock (TokenLock), which
// serializes index-affecting writes on one replica; the KV store itself
// is not transactional. Reads never take the lock. Conflicting writes
// across replicas are serialized by the optimistic version hashes.
package registry

import (
	"context"
	"time"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/auth"
	"github.com/seaward-io/seaward/pkg/cluster"
	"github.com/seaward-io/seaward/pkg/kv"
	"github.com/seaward-io/seaward/pkg/metrics"
	"github.com/seaward-io/seaward/pkg/peers"
	"github.com/seaward-io/seaward/pkg/token"
)

// RefreshPath is the peer endpoint notified after committed mutations.
const RefreshPath = "/tokens/refresh"

// DefaultHistoryDepth bounds the previous chain when none is configured.
const DefaultHistoryDepth = 5

// Registry is the token registry for one replica.
type Registry struct {
	kv            kv.Store
	locks         *lockTable
	authz         auth.Authorizer
	validate      token.Validator
	clock         func() time.Time
	clusters      *cluster.Calculator
	broadcaster   peers.Broadcaster
	quota         int
	historyDepth  int
	root          string
	reservedHosts map[string]bool
}

// Options configures a Registry.
type Options struct {
	// KV is the backing store. Required.
	KV kv.Store

	// Authorizer gates mutations. Required.
	Authorizer auth.Authorizer

	// Clusters resolves request hosts to cluster names. Required.
	Clusters *cluster.Calculator

	// Broadcaster fans refresh notifications out to sibling replicas.
	// Nil means no peers.
	Broadcaster peers.Broadcaster

	// Validate checks service descriptions before they are persisted.
	// Nil skips the check.
	Validate token.Validator

	// Clock supplies the authoritative time. Nil means time.Now.
	Clock func() time.Time

	// QuotaPerOwner caps live tokens per owner; 0 disables the quota.
	QuotaPerOwner int

	// HistoryDepth bounds the previous chain; 0 means DefaultHistoryDepth.
	HistoryDepth int

	// Root is the root cluster stamped on newly created tokens.
	Root string

	// ReservedHosts are names the router answers for itself; they can
	// never be token names.
	ReservedHosts []string
}

// New creates a Registry.
func New(opts Options) *Registry {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	broadcaster := opts.Broadcaster
	if broadcaster == nil {
		broadcaster = peers.NoopBroadcaster{}
	}
	depth := opts.HistoryDepth
	if depth == 0 {
		depth = DefaultHistoryDepth
	}
	reserved := make(map[string]bool, len(opts.ReservedHosts))
	for _, h := range opts.ReservedHosts {
		reserved[h] = true
	}

	return &Registry{
		kv:            opts.KV,
		locks:         newLockTable(),
		authz:         opts.Authorizer,
		validate:      opts.Validate,
		clock:         clock,
		clusters:      opts.Clusters,
		broadcaster:   broadcaster,
		quota:         opts.QuotaPerOwner,
		historyDepth:  depth,
		root:          opts.Root,
		reservedHosts: reserved,
	}
}

// ReservedHosts returns the configured reserved host set.
func (r *Registry) ReservedHosts() map[string]bool {
	return r.reservedHosts
}

// nowMillis returns the authoritative clock reading in epoch millis.
func (r *Registry) nowMillis() int64 {
	return r.clock().UnixMilli()
}

// fetchToken reads a token record, treating an absent key as nil.
func (r *Registry) fetchToken(ctx context.Context, tok string, refresh bool) (token.Record, error) {
	var rec token.Record
	err := r.kv.Fetch(ctx, tok, refresh, &rec)
	if err == kv.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, token.NewInternalError("failed to read token %s: %v", tok, err)
	}
	return rec, nil
}

// GetToken returns a token record and its ETag. Soft-deleted tokens are
// reported as not found unless includeDeleted is set; a record with no
// user fields at all counts as absent.
func (r *Registry) GetToken(ctx context.Context, tok string, includeDeleted bool) (token.Record, string, error) {
	if err := token.ValidateName(tok, r.reservedHosts); err != nil {
		return nil, "", err
	}
	rec, err := r.fetchToken(ctx, tok, false)
	if err != nil {
		return nil, "", err
	}
	if rec == nil || rec.Empty() {
		return nil, "", token.NewNotFoundError(tok)
	}
	if rec.Deleted() && !includeDeleted {
		return nil, "", token.NewNotFoundError(tok)
	}
	return rec, token.Hash(rec), nil
}

// existingHash is the If-Match comparison value for the current record:
// an absent or soft-deleted record is treated as the hash of the empty
// payload.
func existingHash(rec token.Record) string {
	if rec == nil || rec.Deleted() {
		return token.Hash(nil)
	}
	return token.Hash(rec)
}

// checkIfMatch validates an optimistic-concurrency precondition. An empty
// supplied value opts out of the check.
func checkIfMatch(tok, supplied string, existing token.Record) error {
	if supplied == "" {
		return nil
	}
	if supplied != existingHash(existing) {
		return token.NewStaleHashError(tok)
	}
	return nil
}

// notifyPeers broadcasts a refresh notification after a committed
// mutation. Never called while the token lock is held. The mutation is
// already durable at this point, so the fan-out runs on a
// cancellation-free context: a client disconnect must not leave
// siblings holding stale caches.
func (r *Registry) notifyPeers(ctx context.Context, body map[string]any) {
	r.broadcaster.Broadcast(context.WithoutCancel(ctx), RefreshPath, body, "POST")
}

// withTokenLock runs fn inside the token critical section. The supplied
// context is honored up to acquisition; inside, the pipeline runs on a
// cancellation-free context so a client disconnect cannot leave the index
// half-updated.
func (r *Registry) withTokenLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	return r.locks.withLock(TokenLock, func() error {
		defer func() {
			metrics.MutationDuration.Observe(time.Since(start).Seconds())
		}()
		return fn(context.WithoutCancel(ctx))
	})
}

// observe records a mutation outcome metric and logs failures.
func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if te := token.AsError(err); te != nil {
			logger.Debug("token mutation rejected",
				"operation", op, "token", te.Token, "owner", te.Owner, "error", te.Message)
		} else {
			logger.Error("token mutation failed", "operation", op, "error", err)
		}
	}
	metrics.TokenMutations.WithLabelValues(op, outcome).Inc()
}
