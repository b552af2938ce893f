// Package api provides the HTTP server exposing the Seaward token
// registry endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/api/middleware"
	"github.com/seaward-io/seaward/pkg/kv"
	"github.com/seaward-io/seaward/pkg/registry"
)

// Server provides the token registry HTTP server with graceful shutdown.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server in a stopped state. Call
// Start() to begin serving requests.
func NewServer(cfg Config, reg *registry.Registry, store kv.Store, authCfg middleware.AuthConfig) *Server {
	cfg.applyDefaults()

	router := NewRouter(reg, store, authCfg, cfg.RequestTimeout)
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		config: cfg,
	}
}

// Start starts the server and blocks until the context is cancelled or an
// error occurs. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("token API listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("token API shutdown signal received")
		// Shut down on a fresh context; the cancelled one would abort
		// in-flight requests immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("token API failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("token API shutdown error: %w", err)
		} else {
			logger.Info("token API stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}
