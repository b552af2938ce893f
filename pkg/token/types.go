// Package token defines the token record model of the Seaward registry.
//
// A token is a named, versioned, owner-scoped handle for a service
// description: a bundle of recognized service parameters (command, cpus,
// memory, ...) plus metadata (owner, root cluster, timestamps, update
// history, deletion tombstone). Payloads are dynamic maps restricted to a
// closed schema key set; see Sanitize and DataKeys.
package token

import (
	"sort"
	"time"
)

// Well-known record keys.
const (
	KeyOwner          = "owner"
	KeyCluster        = "cluster"
	KeyRoot           = "root"
	KeyLastUpdateTime = "last-update-time"
	KeyLastUpdateUser = "last-update-user"
	KeyDeleted        = "deleted"
	KeyPrevious       = "previous"
	KeyToken          = "token"
	KeyRunAsUser      = "run-as-user"
	KeyAuthentication = "authentication"
	KeyPermittedUser  = "permitted-user"
	KeyInterstitial   = "interstitial-secs"
)

// AuthenticationDisabled is the authentication parameter value that turns
// off request authentication for a service. It forces permitted-user "*"
// and a complete service description.
const AuthenticationDisabled = "disabled"

// AllUsers is the wildcard user in run-as-user / permitted-user.
const AllUsers = "*"

// ParameterKeys is the set of recognized service parameters.
var ParameterKeys = map[string]bool{
	"authentication":    true,
	"backend-proto":     true,
	"cmd":               true,
	"cmd-type":          true,
	"concurrency-level": true,
	"cpus":              true,
	"env":               true,
	"health-check-url":  true,
	"idle-timeout-mins": true,
	"image":             true,
	"interstitial-secs": true,
	"max-instances":     true,
	"mem":               true,
	"metadata":          true,
	"min-instances":     true,
	"name":              true,
	"namespace":         true,
	"permitted-user":    true,
	"ports":             true,
	"run-as-user":       true,
	"version":           true,
}

// UserMetadataKeys are metadata fields a normal-mode request may set.
var UserMetadataKeys = map[string]bool{
	KeyOwner:   true,
	KeyCluster: true,
}

// SystemMetadataKeys are metadata fields only the registry (or an
// administrative update) may set.
var SystemMetadataKeys = map[string]bool{
	KeyLastUpdateTime: true,
	KeyLastUpdateUser: true,
	KeyRoot:           true,
	KeyDeleted:        true,
}

// AdminOnlyKeys are request keys permitted only in admin update mode.
var AdminOnlyKeys = map[string]bool{
	KeyLastUpdateTime: true,
	KeyLastUpdateUser: true,
	KeyRoot:           true,
	KeyPrevious:       true,
}

// RequiredParameterKeys must all be present when a token must describe a
// complete, runnable service (authentication disabled or interstitial set).
var RequiredParameterKeys = []string{"cmd", "cpus", "mem", "version"}

// DataKeys reports whether key belongs to the token-data key set: the
// recognized parameters plus user and system metadata. The previous chain
// is not part of the data key set.
func DataKeys(key string) bool {
	return ParameterKeys[key] || UserMetadataKeys[key] || SystemMetadataKeys[key]
}

// UserEditableKeys reports whether key may be set by a normal-mode request.
func UserEditableKeys(key string) bool {
	return ParameterKeys[key] || UserMetadataKeys[key]
}

// Record is a token record: a dynamic map of token-data keys plus the
// bounded "previous" history. Records travel through the KV adapter as
// JSON objects, so numeric values may surface as float64 after a round
// trip; accessors below normalize them.
type Record map[string]any

// Clone returns a shallow copy of the record. History entries are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Owner returns the owner metadata field, or "".
func (r Record) Owner() string { return r.stringField(KeyOwner) }

// Root returns the root cluster metadata field, or "".
func (r Record) Root() string { return r.stringField(KeyRoot) }

// Cluster returns the cluster metadata field, or "".
func (r Record) Cluster() string { return r.stringField(KeyCluster) }

// LastUpdateUser returns the last-update-user metadata field, or "".
func (r Record) LastUpdateUser() string { return r.stringField(KeyLastUpdateUser) }

// RunAsUser returns the run-as-user parameter, or "".
func (r Record) RunAsUser() string { return r.stringField(KeyRunAsUser) }

// Deleted reports the soft-delete tombstone.
func (r Record) Deleted() bool {
	v, _ := r[KeyDeleted].(bool)
	return v
}

// LastUpdateTime returns the last update time in epoch milliseconds, or 0.
func (r Record) LastUpdateTime() int64 {
	switch v := r[KeyLastUpdateTime].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// LastUpdateTimeISO renders the last update time as RFC 3339 UTC, or "".
func (r Record) LastUpdateTimeISO() string {
	ms := r.LastUpdateTime()
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// Previous returns the bounded history: prior records, newest first.
// History entries never carry their own previous chain.
func (r Record) Previous() []Record {
	switch v := r[KeyPrevious].(type) {
	case []Record:
		return v
	case []any:
		out := make([]Record, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, Record(m))
			}
		}
		return out
	default:
		return nil
	}
}

// Empty reports whether the record carries no parameters and no
// user metadata, the condition treated as "token does not exist".
func (r Record) Empty() bool {
	for k := range r {
		if UserEditableKeys(k) {
			return false
		}
	}
	return true
}

func (r Record) stringField(key string) string {
	v, _ := r[key].(string)
	return v
}

// WithHistory returns rec with prev pushed onto the history chain,
// truncated to depth entries (oldest dropped). prev's own chain is
// flattened into the sequence; depth <= 0 drops history entirely.
func WithHistory(rec, prev Record, depth int) Record {
	out := rec.Clone()
	delete(out, KeyPrevious)
	if depth <= 0 || prev == nil {
		return out
	}

	head := prev.Clone()
	tail := prev.Previous()
	delete(head, KeyPrevious)

	chain := make([]Record, 0, 1+len(tail))
	chain = append(chain, head)
	chain = append(chain, tail...)
	if len(chain) > depth {
		chain = chain[:depth]
	}
	out[KeyPrevious] = chain
	return out
}

// UserProjection returns the user-editable projection of the record:
// the recognized parameters plus user metadata, with empty values
// normalized away. Used for the idempotence short-circuit.
func (r Record) UserProjection() Record {
	out := make(Record)
	for k, v := range r {
		if UserEditableKeys(k) && !emptyValue(v) {
			out[k] = v
		}
	}
	return out
}

// SortedKeys returns the record's keys in lexical order.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
