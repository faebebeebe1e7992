// Package main is the entry point for the T-Pot threat briefing service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tpotops/threatbrief/internal/analysis"
	"github.com/tpotops/threatbrief/internal/api"
	"github.com/tpotops/threatbrief/internal/config"
	"github.com/tpotops/threatbrief/internal/llm"
	"github.com/tpotops/threatbrief/internal/refresh"
	"github.com/tpotops/threatbrief/internal/telemetry"
)

func main() {
	log.Println("Starting T-Pot threat briefing service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Analytics store. Startup failures leave the service running in
	// degraded mode: the dashboard reports the outage and refresh cycles
	// skip until the backend comes back via restart.
	store, err := telemetry.NewStore(ctx, telemetryConfig(cfg.Telemetry), logger.With("component", "telemetry"))
	if err != nil {
		log.Printf("WARNING: analytics store unavailable, serving in degraded mode: %v", err)
		store = telemetry.Unavailable{Reason: err}
	} else {
		log.Printf("Analytics backend: %s", cfg.Telemetry.Backend)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing analytics store: %v", err)
		}
	}()

	// Summarizer. A missing API key is not fatal: the API keeps serving
	// the placeholder analysis and dashboard statistics.
	var summarizer llm.Summarizer
	gemini, err := llm.NewGemini(llm.Config{
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		APIKey:  cfg.Gemini.APIKey,
		Timeout: cfg.Gemini.Timeout.Std(),
	}, logger.With("component", "llm"))
	if err != nil {
		log.Printf("WARNING: AI summarization disabled: %v", err)
		summarizer = llm.Disabled{}
	} else {
		log.Printf("AI summarization model: %s", cfg.Gemini.Model)
		summarizer = gemini
	}

	cache := analysis.NewCache()

	registry := prometheus.NewRegistry()
	metrics := refresh.NewMetrics(registry)

	refresher := refresh.NewRefresher(
		store,
		summarizer,
		cache,
		cfg.Refresh.Window.Std(),
		cfg.Refresh.TopSize,
		logger.With("component", "refresh"),
	)
	scheduler := refresh.NewScheduler(
		cfg.Refresh.InitialDelay.Std(),
		cfg.Refresh.Interval.Std(),
		refresher.RunCycle,
		logger.With("component", "scheduler"),
		metrics,
	)
	scheduler.Start(ctx)
	log.Printf("Refresh pipeline scheduled: first run in %s, then every %s over a %s window",
		cfg.Refresh.InitialDelay.Std(), cfg.Refresh.Interval.Std(), cfg.Refresh.Window.Std())

	dashboard := api.NewDashboard(store, api.DashboardConfig{
		Window:            cfg.Dashboard.Window.Std(),
		BucketInterval:    cfg.Dashboard.BucketInterval.Std(),
		TopSize:           cfg.Dashboard.TopSize,
		CredentialTopSize: cfg.Dashboard.CredentialTopSize,
		SampleSize:        cfg.Dashboard.SampleSize,
	})
	apiServer := api.NewServer(cfg.ListenAddr, dashboard, cache, registry, logger.With("component", "api"))

	// Start pprof server for profiling (separate port)
	go func() {
		log.Printf("Starting pprof server on http://%s/debug/pprof", cfg.PprofAddr)
		if err := http.ListenAndServe(cfg.PprofAddr, nil); err != nil {
			log.Printf("pprof server error: %v", err)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting REST API server on %s", cfg.ListenAddr)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	log.Println("API endpoints:")
	log.Printf("  - Status: http://localhost%s/", cfg.ListenAddr)
	log.Printf("  - Dashboard: http://localhost%s/api/dashboard", cfg.ListenAddr)
	log.Printf("  - AI analysis: http://localhost%s/api/ai-analysis", cfg.ListenAddr)
	log.Printf("  - Health: http://localhost%s/health", cfg.ListenAddr)
	log.Printf("  - Metrics: http://localhost%s/metrics", cfg.ListenAddr)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down...", sig)
	}

	// Stop scheduling new cycles before taking the API down.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down API server...")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	log.Println("Shutdown complete")
}

func telemetryConfig(cfg config.TelemetryConfig) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.Backend = cfg.Backend
	tc.Elasticsearch.URL = cfg.Elasticsearch.URL
	tc.Elasticsearch.Index = cfg.Elasticsearch.Index
	tc.Elasticsearch.Username = cfg.Elasticsearch.Username
	tc.Elasticsearch.Password = cfg.Elasticsearch.Password
	if cfg.Elasticsearch.Timeout > 0 {
		tc.Elasticsearch.Timeout = cfg.Elasticsearch.Timeout.Std()
	}
	tc.ClickHouse.Addr = cfg.ClickHouse.Addr
	tc.ClickHouse.Database = cfg.ClickHouse.Database
	tc.ClickHouse.Username = cfg.ClickHouse.Username
	tc.ClickHouse.Password = cfg.ClickHouse.Password
	tc.ClickHouse.Table = cfg.ClickHouse.Table
	return tc
}
