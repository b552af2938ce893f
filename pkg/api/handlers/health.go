package handlers

import (
	"net/http"
	"time"

	"github.com/seaward-io/seaward/pkg/kv"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store kv.Store
}

// NewHealthHandler creates a HealthHandler backed by the registry's KV
// store.
func NewHealthHandler(store kv.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// healthResponse is the probe response body.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Liveness handles GET /health: the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, healthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}

// Readiness handles GET /health/ready: the KV store answers reads.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	var probe map[string]any
	err := h.store.Fetch(r.Context(), "^HEALTH_PROBE", true, &probe)
	if err != nil && err != kv.ErrNotFound {
		WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		})
		return
	}
	WriteJSONOK(w, healthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}
