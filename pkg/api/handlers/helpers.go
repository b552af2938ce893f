package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/seaward-io/seaward/pkg/token"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns false (with the error response already written) on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// includeSet parses the repeatable "include" query parameter, which also
// accepts comma-separated values.
func includeSet(r *http.Request) map[string]bool {
	set := make(map[string]bool)
	for _, raw := range r.URL.Query()["include"] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				set[v] = true
			}
		}
	}
	return set
}

// resolveHostToken maps a request's Host header to a token name: any host
// the router does not answer for itself is a token-resolving host.
// Returns "" when the host is reserved or not a valid token name.
func resolveHostToken(r *http.Request, reservedHosts map[string]bool) string {
	host := r.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "" || reservedHosts[host] {
		return ""
	}
	if err := token.ValidateName(host, reservedHosts); err != nil {
		return ""
	}
	return host
}

// describeToken shapes a record for a GET /token response: the
// user-editable payload, plus system metadata when requested.
func describeToken(rec token.Record, includeMetadata bool) map[string]any {
	out := map[string]any(rec.UserProjection())
	if includeMetadata {
		out[token.KeyRoot] = rec.Root()
		out[token.KeyLastUpdateTime] = rec.LastUpdateTimeISO()
		out[token.KeyLastUpdateUser] = rec.LastUpdateUser()
		if rec.Deleted() {
			out[token.KeyDeleted] = true
		}
	}
	return out
}
