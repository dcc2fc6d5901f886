// Package main provides the entry point for the ThreatLens server.
// ThreatLens turns scraped free-text artifacts into structured threat
// intelligence: extracted IOCs, a threat-level verdict, and campaign
// attribution, persisted for cross-job correlation.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lvonguyen/threatlens/internal/analysis"
	"github.com/lvonguyen/threatlens/internal/api"
	"github.com/lvonguyen/threatlens/internal/config"
	"github.com/lvonguyen/threatlens/internal/inference"
	"github.com/lvonguyen/threatlens/internal/observability"
	"github.com/lvonguyen/threatlens/internal/store"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ThreatLens %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		// A missing config file is not fatal, defaults cover local runs.
		cfg = config.DefaultConfig()
	}
	cfg.Telemetry.ServiceVersion = Version

	telemetry, err := observability.New(cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry init failed: %v\n", err)
		os.Exit(1)
	}
	logger := telemetry.Logger()
	logger.Info("starting ThreatLens",
		zap.String("version", Version),
		zap.String("config", *configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	telemetry.StartSystemMetricsCollector(ctx)

	correlationStore := store.New(
		cfg.Redis.Addr,
		cfg.Redis.Password(),
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		logger.Named("store"),
	)
	defer correlationStore.Close()

	if err := correlationStore.Ping(ctx); err != nil {
		// The service still answers /analyze when the store is down;
		// results just come back unpersisted.
		logger.Warn("correlation store unreachable at startup", zap.Error(err))
	}

	inferenceClient := inference.NewClient(cfg.Inference)
	if err := inferenceClient.HealthCheck(ctx); err != nil {
		logger.Warn("inference collaborator unreachable at startup", zap.Error(err))
	}

	engine := analysis.NewEngine(
		inferenceClient,
		correlationStore,
		telemetry.Metrics(),
		logger.Named("engine"),
		cfg.Analysis,
	)

	var limiter *api.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = api.NewRateLimiter(
			correlationStore.Client(),
			cfg.RateLimit.RequestsPerMinute,
			logger.Named("ratelimit"),
		)
	}

	server := api.NewServer(engine, correlationStore, inferenceClient, logger.Named("api"), api.Options{
		RateLimiter:    limiter,
		Metrics:        telemetry.Metrics(),
		MetricsHandler: telemetry.MetricsHandler(),
		Version:        Version,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
