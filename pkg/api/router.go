package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/api/handlers"
	"github.com/seaward-io/seaward/pkg/api/middleware"
	"github.com/seaward-io/seaward/pkg/kv"
	"github.com/seaward-io/seaward/pkg/registry"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Routes:
//   - GET /health, GET /health/ready - probes (unauthenticated)
//   - GET/POST/DELETE /token - token CRUD
//   - GET /tokens - owner-scoped listing with filters
//   - GET /token-owners - owner directory dump
//   - POST /tokens/refresh - peer cache invalidation
//   - POST /tokens/reindex - operator-triggered index rebuild
func NewRouter(reg *registry.Registry, store kv.Store, authCfg middleware.AuthConfig, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.MethodNotAllowed(w)
	})

	healthHandler := handlers.NewHealthHandler(store)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	tokenHandler := handlers.NewTokenHandler(reg)

	// Peer refresh is replica-to-replica traffic and carries no user
	// identity; everything else requires an authenticated caller.
	r.Post("/tokens/refresh", tokenHandler.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(authCfg))

		r.Get("/token", tokenHandler.Get)
		r.Post("/token", tokenHandler.Update)
		r.Delete("/token", tokenHandler.Delete)

		r.Get("/tokens", tokenHandler.List)
		r.Post("/tokens/reindex", tokenHandler.Reindex)
		r.Get("/token-owners", tokenHandler.Owners)
	})

	return r
}

// requestLogger logs request start at DEBUG and completion at INFO using
// the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
