package peers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesAllPeers(t *testing.T) {
	var hits atomic.Int32
	var lastBody atomic.Value

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tokens/refresh", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		lastBody.Store(body)
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	peer1 := httptest.NewServer(handler)
	defer peer1.Close()
	peer2 := httptest.NewServer(handler)
	defer peer2.Close()

	b := NewHTTPBroadcaster([]string{peer1.URL, peer2.URL}, time.Second)
	b.Broadcast(context.Background(), "/tokens/refresh",
		map[string]any{"token": "svc", "owner": "alice"}, http.MethodPost)

	assert.Equal(t, int32(2), hits.Load())
	body := lastBody.Load().(map[string]any)
	assert.Equal(t, "svc", body["token"])
}

func TestBroadcastSurvivesFailingPeer(t *testing.T) {
	var hits atomic.Int32
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ok.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	// One peer down, one returning 500; the healthy one is still notified
	// and Broadcast never errors.
	b := NewHTTPBroadcaster([]string{"http://127.0.0.1:1", failing.URL, ok.URL}, time.Second)
	b.Broadcast(context.Background(), "/tokens/refresh", map[string]any{"index": true}, http.MethodPost)

	assert.Equal(t, int32(1), hits.Load())
}

func TestBroadcastNoPeers(t *testing.T) {
	b := NewHTTPBroadcaster(nil, time.Second)
	// Must be a cheap no-op.
	b.Broadcast(context.Background(), "/tokens/refresh", map[string]any{}, http.MethodPost)
}
