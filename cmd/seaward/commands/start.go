package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/seaward-io/seaward/internal/logger"
	"github.com/seaward-io/seaward/pkg/api"
	"github.com/seaward-io/seaward/pkg/api/middleware"
	"github.com/seaward-io/seaward/pkg/auth"
	"github.com/seaward-io/seaward/pkg/cluster"
	"github.com/seaward-io/seaward/pkg/config"
	"github.com/seaward-io/seaward/pkg/kv"
	"github.com/seaward-io/seaward/pkg/peers"
	"github.com/seaward-io/seaward/pkg/registry"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the token registry server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runServer() error {
	path := configPath
	if path == "" {
		if p := config.DefaultPath(); fileExists(p) {
			path = p
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	logger.Info("starting seaward",
		"version", Version,
		"config", path,
		"kv", cfg.KV.Type,
		"auth", cfg.Auth.Mode)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	var broadcaster peers.Broadcaster = peers.NoopBroadcaster{}
	if len(cfg.Peers.URLs) > 0 {
		broadcaster = peers.NewHTTPBroadcaster(cfg.Peers.URLs, cfg.Peers.Timeout)
		logger.Info("peer refresh enabled", "peers", len(cfg.Peers.URLs))
	}

	reg := registry.New(registry.Options{
		KV:            store,
		Authorizer:    auth.NewStaticAuthorizer(cfg.Auth.Admins),
		Clusters:      cluster.NewCalculator(cfg.Registry.DefaultCluster, cfg.Registry.HostClusters),
		Broadcaster:   broadcaster,
		QuotaPerOwner: cfg.Registry.QuotaPerOwner,
		HistoryDepth:  cfg.Registry.HistoryDepth,
		Root:          cfg.Registry.Root,
		ReservedHosts: cfg.Registry.ReservedHosts,
	})

	server := api.NewServer(cfg.API, reg, store, middleware.AuthConfig{
		Mode:      cfg.Auth.Mode,
		JWTSecret: cfg.Auth.JWTSecret,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		startMetricsListener(ctx, cfg.Metrics.Port)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return err
	}
	logger.Info("seaward stopped")
	return nil
}

func openStore(cfg *config.Config) (kv.Store, error) {
	var store kv.Store
	switch cfg.KV.Type {
	case "memory":
		store = kv.NewMemoryStore()
	case "badger":
		badger, err := kv.NewBadgerStore(kv.BadgerConfig{Path: cfg.KV.Path})
		if err != nil {
			return nil, err
		}
		store = badger
	default:
		return nil, fmt.Errorf("unknown kv type %q", cfg.KV.Type)
	}

	if cfg.KV.Cache {
		store = kv.NewCachedStore(store)
	}
	return store, nil
}

// startMetricsListener serves /metrics on its own port so the token API
// surface stays unchanged when metrics are enabled.
func startMetricsListener(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("metrics listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
