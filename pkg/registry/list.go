package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/seaward-io/seaward/pkg/metrics"
	"github.com/seaward-io/seaward/pkg/token"
)

// ListOptions filters an owner-scoped token enumeration.
type ListOptions struct {
	// Owners restricts the listing; empty means every owner in the
	// directory.
	Owners []string

	// IncludeDeleted keeps soft-deleted tokens in the listing.
	IncludeDeleted bool

	// IncludeMetadata emits etag, deleted and last-update-time (as
	// RFC 3339) per entry instead of the stripped form.
	IncludeMetadata bool

	// CanManageAs keeps only tokens the given user can manage.
	CanManageAs string

	// ParameterFilters keeps only tokens whose named parameter
	// stringifies to one of the given values. Filter names must belong
	// to the token-data key set.
	ParameterFilters map[string][]string
}

// ListEntry is one listed token. Always carries "token" and "owner";
// metadata fields are included per ListOptions.
type ListEntry map[string]any

// ListTokens enumerates tokens owner by owner, walking the shard of each
// owner in scope. Listing is lock-free; it reads whatever index state is
// current on this replica.
func (r *Registry) ListTokens(ctx context.Context, opts ListOptions) ([]ListEntry, error) {
	for name := range opts.ParameterFilters {
		if !token.DataKeys(name) {
			return nil, token.NewValidationError("unsupported filter parameter %s", name)
		}
	}

	dir, err := r.loadDirectory(ctx, false)
	if err != nil {
		return nil, err
	}

	owners := opts.Owners
	if len(owners) == 0 {
		for owner := range dir {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)

	var entries []ListEntry
	for _, owner := range owners {
		shardKey, ok := dir[owner]
		if !ok {
			continue
		}
		shard, err := r.loadShard(ctx, shardKey, false)
		if err != nil {
			return nil, err
		}

		names := make([]string, 0, len(shard))
		for name := range shard {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			indexed := shard[name]
			if indexed.Deleted && !opts.IncludeDeleted {
				continue
			}
			if opts.CanManageAs != "" {
				md := token.Record{token.KeyOwner: owner}
				if !r.authz.CanManage(opts.CanManageAs, name, md) {
					continue
				}
			}
			if len(opts.ParameterFilters) > 0 {
				match, err := r.matchFilters(ctx, name, opts.ParameterFilters)
				if err != nil {
					return nil, err
				}
				if !match {
					continue
				}
			}

			entry := ListEntry{"token": name, "owner": owner}
			if opts.IncludeMetadata {
				entry["etag"] = indexed.Hash
				entry["deleted"] = indexed.Deleted
				entry["last-update-time"] = isoMillis(indexed.LastUpdateTime)
			}
			entries = append(entries, entry)
			metrics.TokensListed.Inc()
		}
	}
	return entries, nil
}

// matchFilters fetches the token record and checks every parameter filter
// against the stringified parameter value.
func (r *Registry) matchFilters(ctx context.Context, tok string, filters map[string][]string) (bool, error) {
	rec, err := r.fetchToken(ctx, tok, false)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	for name, values := range filters {
		got := stringify(rec[name])
		matched := false
		for _, want := range values {
			if got == want {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// ListOwners returns the owner directory's keys in lexical order.
func (r *Registry) ListOwners(ctx context.Context) ([]string, error) {
	dir, err := r.loadDirectory(ctx, false)
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(dir))
	for owner := range dir {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}

// OwnersMap returns the raw owner directory for operator inspection.
func (r *Registry) OwnersMap(ctx context.Context) (Directory, error) {
	return r.loadDirectory(ctx, false)
}

// stringify renders a parameter value the way filters compare it.
func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// isoMillis renders epoch millis as RFC 3339 UTC.
func isoMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return token.Record{token.KeyLastUpdateTime: ms}.LastUpdateTimeISO()
}
