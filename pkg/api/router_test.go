package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seaward-io/seaward/pkg/api/middleware"
	"github.com/seaward-io/seaward/pkg/auth"
	"github.com/seaward-io/seaward/pkg/cluster"
	"github.com/seaward-io/seaward/pkg/kv"
	"github.com/seaward-io/seaward/pkg/registry"
	"github.com/seaward-io/seaward/pkg/token"
)

func newTestRouter(t *testing.T, opts ...func(*registry.Options)) http.Handler {
	t.Helper()

	store := kv.NewMemoryStore()
	o := registry.Options{
		KV:            store,
		Authorizer:    auth.NewStaticAuthorizer([]string{"root"}),
		Clusters:      cluster.NewCalculator("default", nil),
		Root:          "main",
		ReservedHosts: []string{"localhost"},
	}
	for _, fn := range opts {
		fn(&o)
	}

	// Header mode is the simplest identity source for end-to-end tests.
	return NewRouter(registry.New(o), store, middleware.AuthConfig{Mode: "header"}, time.Minute)
}

// doJSON performs a request as user and decodes the JSON response body.
func doJSON(t *testing.T, router http.Handler, method, target, user string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if user != "" {
		req.Header.Set("X-Seaward-User", user)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 && rr.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	}
	return rr, decoded
}

func minimalBody(cmd string) token.Record {
	return token.Record{"cmd": cmd, "cpus": 1, "mem": 128, "version": "1"}
}

func TestTokenLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	// Create.
	rr, body := doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/usr/bin/svc"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Successfully created svc", body["message"])
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	desc, ok := body["service-description"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/svc", desc["cmd"])
	assert.Equal(t, "alice", desc["owner"])

	// Read back, with and without metadata.
	rr, body = doJSON(t, router, http.MethodGet, "/token?token=svc", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, etag, rr.Header().Get("ETag"))
	assert.Equal(t, "/usr/bin/svc", body["cmd"])
	assert.NotContains(t, body, "root")

	rr, body = doJSON(t, router, http.MethodGet, "/token?token=svc&include=metadata", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "main", body["root"])
	assert.Equal(t, "alice", body["last-update-user"])

	// Identical repost is a no-op.
	rr, body = doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/usr/bin/svc"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "No changes detected for svc", body["message"])
	assert.Equal(t, etag, rr.Header().Get("ETag"))

	// Update with the current hash.
	rr, body = doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/usr/bin/svc2"), map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Successfully updated svc", body["message"])
	assert.NotEqual(t, etag, rr.Header().Get("ETag"))

	// Soft delete, then the token is gone unless include=deleted.
	rr, _ = doJSON(t, router, http.MethodDelete, "/token?token=svc", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, router, http.MethodGet, "/token?token=svc", "alice", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, body = doJSON(t, router, http.MethodGet, "/token?token=svc&include=deleted,metadata", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["deleted"])
}

func TestStaleHashOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	rr, _ := doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/x"), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body := doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/y"), map[string]string{"If-Match": "Estale"})
	require.Equal(t, http.StatusPreconditionFailed, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, body["detail"], "stale token version")
}

func TestQuotaOverHTTP(t *testing.T) {
	router := newTestRouter(t, func(o *registry.Options) { o.QuotaPerOwner = 1 })

	rr, _ := doJSON(t, router, http.MethodPost, "/token?token=svc-1", "alice",
		minimalBody("/x"), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body := doJSON(t, router, http.MethodPost, "/token?token=svc-2", "alice",
		minimalBody("/y"), nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, body["detail"], "quota")
}

func TestHardDeleteOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	rr, _ := doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/x"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")

	// Non-admins cannot hard-delete.
	rr, _ = doJSON(t, router, http.MethodDelete, "/token?token=svc&hard-delete=true", "alice",
		nil, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Admins need the version hash for a live token.
	rr, _ = doJSON(t, router, http.MethodDelete, "/token?token=svc&hard-delete=true", "root", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, body := doJSON(t, router, http.MethodDelete, "/token?token=svc&hard-delete=true", "root",
		nil, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Successfully hard-deleted svc", body["message"])

	rr, _ = doJSON(t, router, http.MethodGet, "/token?token=svc&include=deleted", "alice", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTokenBodyQueryConflict(t *testing.T) {
	router := newTestRouter(t)

	payload := minimalBody("/x")
	payload["token"] = "other"
	rr, body := doJSON(t, router, http.MethodPost, "/token?token=svc", "alice", payload, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, body["detail"], "does not match")
}

func TestHostHeaderResolvesToken(t *testing.T) {
	router := newTestRouter(t)
	rr, _ := doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/x"), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.Host = "svc:9091"
	req.Header.Set("X-Seaward-User", "alice")
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusOK, rr2.Code)

	// A reserved host does not resolve to a token.
	req = httptest.NewRequest(http.MethodGet, "/token", nil)
	req.Host = "localhost:9091"
	req.Header.Set("X-Seaward-User", "alice")
	rr2 = httptest.NewRecorder()
	router.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusBadRequest, rr2.Code)
}

func TestListAndOwnersOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	for i, user := range []string{"alice", "alice", "bob"} {
		target := fmt.Sprintf("/token?token=svc-%d", i)
		rr, _ := doJSON(t, router, http.MethodPost, target, user, minimalBody("/x"), nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/tokens?owner=alice&include=metadata", nil)
	req.Header.Set("X-Seaward-User", "alice")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "svc-0", entries[0]["token"])
	assert.NotEmpty(t, entries[0]["etag"])

	rr2, owners := doJSON(t, router, http.MethodGet, "/token-owners", "alice", nil, nil)
	require.Equal(t, http.StatusOK, rr2.Code)
	assert.Len(t, owners, 2)
}

func TestReindexOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	rr, _ := doJSON(t, router, http.MethodPost, "/token?token=svc", "alice",
		minimalBody("/x"), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body := doJSON(t, router, http.MethodPost, "/tokens/reindex", "root", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["tokens"])
}

func TestRefreshEndpointUnauthenticated(t *testing.T) {
	router := newTestRouter(t)

	// Peer traffic carries no user identity.
	rr, _ := doJSON(t, router, http.MethodPost, "/tokens/refresh", "",
		map[string]any{"index": true}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	router := newTestRouter(t)

	rr, _ := doJSON(t, router, http.MethodGet, "/token?token=svc", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	rr, _ := doJSON(t, router, http.MethodPut, "/token?token=svc", "alice",
		minimalBody("/x"), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{"/health", "/health/ready"} {
		rr, _ := doJSON(t, router, http.MethodGet, target, "", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code, target)
	}
}
