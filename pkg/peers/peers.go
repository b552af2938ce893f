// Package peers implements the best-effort refresh fan-out that keeps
// sibling registry replicas cache-coherent. After a committed mutation
// the originating replica broadcasts a small JSON notification; peers
// re-fetch the named keys with the refresh flag set.
//
// Broadcast failures are logged and never propagated: a peer that missed
// a refresh serves stale reads until the next notification, which the
// optimistic version hashes make safe.
package peers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/metrics"
)

// Broadcaster fans a notification out to every sibling replica.
type Broadcaster interface {
	// Broadcast sends body to path on every peer using the given HTTP
	// method. It blocks until all peer requests return or time out.
	Broadcast(ctx context.Context, path string, body any, method string)
}

// HTTPBroadcaster posts notifications to a static list of peer base URLs.
// Peer enumeration is deliberately external to the registry; this
// implementation takes whatever the deployment configured.
type HTTPBroadcaster struct {
	peers  []string
	client *http.Client
}

// NewHTTPBroadcaster creates a broadcaster for the given peer base URLs
// (e.g. "http://replica-2:9090"). timeout bounds each peer request.
func NewHTTPBroadcaster(peerURLs []string, timeout time.Duration) *HTTPBroadcaster {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPBroadcaster{
		peers:  peerURLs,
		client: &http.Client{Timeout: timeout},
	}
}

// Broadcast sends the notification to all peers concurrently and waits
// for the slowest one. Individual failures are logged and counted.
func (b *HTTPBroadcaster) Broadcast(ctx context.Context, path string, body any, method string) {
	if len(b.peers) == 0 {
		return
	}

	payload, err := json.Marshal(body)
	if err != nil {
		logger.Error("failed to encode peer notification", "path", path, "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, peer := range b.peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			if err := b.notify(ctx, peer, path, payload, method); err != nil {
				metrics.PeerRefreshFailures.Inc()
				logger.Warn("peer refresh failed", "peer", peer, "path", path, "error", err)
			}
		}(peer)
	}
	wg.Wait()
}

func (b *HTTPBroadcaster) notify(ctx context.Context, peer, path string, payload []byte, method string) error {
	url := peer + path
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopBroadcaster discards notifications. Used for single-replica
// deployments and tests.
type NoopBroadcaster struct{}

// Broadcast does nothing.
func (NoopBroadcaster) Broadcast(ctx context.Context, path string, body any, method string) {}
