// Package auth defines the authorization gate consulted by the token
// registry before any mutation. Authentication (who the caller is) is
// handled at the API boundary; this package only answers whether an
// already-authenticated user may do something.
package auth

import (
	"github.com/seaward-io/seaward/pkg/token"
)

// Authorizer is the decision interface for token mutations.
type Authorizer interface {
	// CanManage reports whether user may manage (update, transfer,
	// soft-delete) the token described by md.
	CanManage(user, tok string, md token.Record) bool

	// CanAdminister reports whether user may perform administrative
	// operations (admin-mode updates, hard deletes) on the token.
	CanAdminister(user, tok string, md token.Record) bool

	// CanRunAs reports whether user may run services as target.
	CanRunAs(user, target string) bool
}

// StaticAuthorizer authorizes from a fixed administrator list: admins may
// do anything, owners manage their own tokens, and every user may run as
// themselves. This is the default gate for single-team deployments;
// larger installations plug in their own Authorizer.
type StaticAuthorizer struct {
	admins map[string]bool
}

// NewStaticAuthorizer creates an authorizer with the given admin users.
func NewStaticAuthorizer(admins []string) *StaticAuthorizer {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		set[a] = true
	}
	return &StaticAuthorizer{admins: set}
}

// CanManage allows admins and the token's owner. A token without an owner
// on record is manageable by any authenticated user; creates always stamp
// an owner, so that case only covers legacy records.
func (a *StaticAuthorizer) CanManage(user, tok string, md token.Record) bool {
	if a.admins[user] {
		return true
	}
	owner := md.Owner()
	if owner == "" {
		return true
	}
	return owner == user
}

// CanAdminister allows only admins.
func (a *StaticAuthorizer) CanAdminister(user, tok string, md token.Record) bool {
	return a.admins[user]
}

// CanRunAs allows running as yourself or as the wildcard user; admins may
// run as anyone.
func (a *StaticAuthorizer) CanRunAs(user, target string) bool {
	if a.admins[user] {
		return true
	}
	return target == user || target == token.AllUsers
}
