package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/seaward-io/seaward/pkg/api/middleware"
	"github.com/seaward-io/seaward/pkg/registry"
	"github.com/seaward-io/seaward/pkg/token"
)

// TokenHandler serves the token registry endpoints.
type TokenHandler struct {
	reg *registry.Registry
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(reg *registry.Registry) *TokenHandler {
	return &TokenHandler{reg: reg}
}

// requestToken resolves the token a request addresses: the "token" query
// parameter wins; without it the Host header is consulted.
func (h *TokenHandler) requestToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	return resolveHostToken(r, h.reg.ReservedHosts())
}

// Get handles GET /token: the token's service description and user
// metadata, plus system metadata when include=metadata. The response
// carries the token's hash as ETag.
func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	tok := h.requestToken(r)
	if tok == "" {
		BadRequest(w, "couldn't find token in request")
		return
	}
	include := includeSet(r)

	rec, etag, err := h.reg.GetToken(r.Context(), tok, include["deleted"])
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("ETag", etag)
	WriteJSONOK(w, describeToken(rec, include["metadata"]))
}

// Update handles POST /token: create or update. The query parameter
// update-mode=admin selects the administrative mode; If-Match carries the
// expected version hash.
func (h *TokenHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body token.Record
	if !decodeJSONBody(w, r, &body) {
		return
	}

	tok, _ := body[token.KeyToken].(string)
	delete(body, token.KeyToken)
	if queryTok := r.URL.Query().Get("token"); queryTok != "" {
		if tok != "" && tok != queryTok {
			BadRequest(w, "token in body does not match token in query")
			return
		}
		tok = queryTok
	}

	admin := false
	switch mode := r.URL.Query().Get("update-mode"); mode {
	case "", "normal":
	case "admin":
		admin = true
	default:
		BadRequest(w, fmt.Sprintf("invalid update-mode %q", mode))
		return
	}

	res, err := h.reg.Upsert(r.Context(), registry.UpsertRequest{
		User:        middleware.CurrentUser(r),
		Token:       tok,
		Body:        body,
		IfMatch:     r.Header.Get("If-Match"),
		Admin:       admin,
		RequestHost: r.Host,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	var message string
	switch {
	case res.NoChange:
		message = fmt.Sprintf("No changes detected for %s", tok)
	case res.Created:
		message = fmt.Sprintf("Successfully created %s", tok)
	default:
		message = fmt.Sprintf("Successfully updated %s", tok)
	}

	w.Header().Set("ETag", res.Hash)
	WriteJSONOK(w, map[string]any{
		"message":             message,
		"service-description": map[string]any(res.Record.UserProjection()),
	})
}

// Delete handles DELETE /token: soft delete by default, hard delete with
// hard-delete=true and administrator authorization.
func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tok := h.requestToken(r)
	if tok == "" {
		BadRequest(w, "couldn't find token in request")
		return
	}
	hard := r.URL.Query().Get("hard-delete") == "true"

	res, err := h.reg.Delete(r.Context(), registry.DeleteRequest{
		User:    middleware.CurrentUser(r),
		Token:   tok,
		IfMatch: r.Header.Get("If-Match"),
		Hard:    hard,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	if res.Hash != "" {
		w.Header().Set("ETag", res.Hash)
	}
	verb := "soft-deleted"
	if res.Hard {
		verb = "hard-deleted"
	}
	WriteJSONOK(w, map[string]any{
		"message": fmt.Sprintf("Successfully %s %s", verb, tok),
	})
}

// List handles GET /tokens: owner-scoped enumeration with predicate
// filters, streamed as a JSON array.
//
// Query parameters: owner (repeatable), include (deleted, metadata),
// can-manage-as-user, and any token-data parameter as a value filter.
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	include := includeSet(r)

	filters := make(map[string][]string)
	for name, values := range query {
		switch name {
		case "owner", "include", "can-manage-as-user":
			continue
		}
		filters[name] = values
	}

	entries, err := h.reg.ListTokens(r.Context(), registry.ListOptions{
		Owners:           query["owner"],
		IncludeDeleted:   include["deleted"],
		IncludeMetadata:  include["metadata"],
		CanManageAs:      query.Get("can-manage-as-user"),
		ParameterFilters: filters,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	// Stream the array entry by entry; listings can be large.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	fmt.Fprint(w, "[")
	for i, entry := range entries {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		_ = enc.Encode(entry)
	}
	fmt.Fprint(w, "]")
}

// Owners handles GET /token-owners: the raw owner directory.
func (h *TokenHandler) Owners(w http.ResponseWriter, r *http.Request) {
	dir, err := h.reg.OwnersMap(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSONOK(w, dir)
}

// Refresh handles POST /tokens/refresh, the peer-only cache invalidation
// endpoint.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req registry.RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := h.reg.Refresh(r.Context(), req); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSONOK(w, map[string]any{"message": "refreshed"})
}

// Reindex handles POST /tokens/reindex, the operator-triggered rebuild of
// the owner directory and shards.
func (h *TokenHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.reg.TokenNames(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.reg.Reindex(r.Context(), tokens); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSONOK(w, map[string]any{
		"message": "reindexed tokens",
		"tokens":  len(tokens),
	})
}
