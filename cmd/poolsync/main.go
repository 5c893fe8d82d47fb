// Package main is the entry point for the pool sync worker. It consumes
// the profile and assignment change feed over WebSocket and keeps the
// ranking pool store in sync.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onmission/matchd/internal/config"
	"github.com/onmission/matchd/internal/ingest"
	"github.com/onmission/matchd/internal/middleware"
	"github.com/onmission/matchd/internal/store"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	metricsPort := flag.Int("metrics-port", 9091, "port for the metrics endpoint")
	flag.Parse()

	if *help {
		fmt.Println("Matchd Pool Sync Worker")
		fmt.Println()
		fmt.Println("Usage: poolsync [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}
	if cfg.PoolStreamURL == "" {
		fmt.Fprintln(os.Stderr, "config error: POOL_STREAM_URL is required")
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	var repo store.Store
	if cfg.DatabaseURL == "memory" {
		logger.Warn("using in-memory store; synced data is lost on restart")
		repo = store.NewInMemoryStore()
	} else {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			logger.Error("failed to reach database", "error", err)
			os.Exit(1)
		}
		repo = store.NewPostgresStore(db)
	}

	registry := prometheus.NewRegistry()
	metrics := ingest.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	applier := ingest.NewApplier(repo, metrics, logger)
	client, err := ingest.NewClient(ingest.DefaultConfig(cfg.PoolStreamURL), applier.Handle, logger)
	if err != nil {
		logger.Error("invalid sync feed configuration", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})

	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *metricsPort),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server starting", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("pool sync worker starting", "feed", cfg.PoolStreamURL)
	if err := client.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("sync client stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}
	logger.Info("pool sync worker stopped")
}
