// Package metrics registers Seaward's Prometheus collectors. Metrics are
// registered on the default registry at package load; serve them with
// promhttp.Handler on the metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenMutations counts pipeline runs by operation and outcome.
	TokenMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seaward",
		Subsystem: "tokens",
		Name:      "mutations_total",
		Help:      "Token mutations by operation (create, update, delete, reindex) and outcome (ok, error).",
	}, []string{"operation", "outcome"})

	// MutationDuration observes the time spent inside the token lock.
	MutationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "seaward",
		Subsystem: "tokens",
		Name:      "mutation_duration_seconds",
		Help:      "Duration of token mutations, measured while the token lock is held.",
		Buckets:   prometheus.DefBuckets,
	})

	// PeerRefreshFailures counts failed peer refresh notifications.
	PeerRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seaward",
		Subsystem: "peers",
		Name:      "refresh_failures_total",
		Help:      "Peer refresh notifications that failed or timed out.",
	})

	// TokensListed counts entries returned by list operations.
	TokensListed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "seaward",
		Subsystem: "tokens",
		Name:      "listed_total",
		Help:      "Token entries emitted by list operations.",
	})
)
