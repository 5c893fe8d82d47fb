// Package main is the entry point for the matching API server.
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
	"github.com/redis/go-redis/v9"

	"github.com/onmission/matchd/internal/api"
	"github.com/onmission/matchd/internal/auth"
	"github.com/onmission/matchd/internal/config"
	"github.com/onmission/matchd/internal/health"
	"github.com/onmission/matchd/internal/match"
	"github.com/onmission/matchd/internal/middleware"
	"github.com/onmission/matchd/internal/store"
	"github.com/onmission/matchd/internal/tracing"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Matchd API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
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

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	tracer, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "matchd-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// DATABASE_URL=memory runs against the in-memory store; anything else
	// is treated as a postgres DSN.
	var (
		repo      store.Store
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
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
		dbChecker = health.NewDBChecker(db)
	}

	// Redis backs distributed rate limiting; without it each instance
	// counts independently.
	var (
		rlStore      middleware.RateLimitStore
		redisChecker api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		rlStore = middleware.NewRedisRateLimitStore(redisClient)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		logger.Warn("REDIS_URL not set; rate limiting is per-instance only")
		rlStore = middleware.NewInMemoryRateLimitStore()
	}

	handler, err := buildHandler(cfg, serverDeps{
		repo:         repo,
		rlStore:      rlStore,
		dbChecker:    dbChecker,
		redisChecker: redisChecker,
		logger:       logger,
	})
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

// serverDeps carries the runtime dependencies main resolves from config.
type serverDeps struct {
	repo         store.Store
	rlStore      middleware.RateLimitStore
	dbChecker    api.HealthChecker
	redisChecker api.HealthChecker
	logger       *slog.Logger
}

// buildHandler assembles the routing table and middleware chain for the
// API server. Split out of main so the full chain can be exercised in
// tests against an in-memory store.
func buildHandler(cfg *config.Config, deps serverDeps) (http.Handler, error) {
	presets := match.DefaultPresets()
	if cfg.CalibrationPath != "" {
		var err error
		presets, err = match.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			return nil, fmt.Errorf("loading weight calibration from %s: %w", cfg.CalibrationPath, err)
		}
		deps.logger.Info("weight calibration loaded", "path", cfg.CalibrationPath)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	matchMetrics := match.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("registering http metrics: %w", err)
	}
	if err := matchMetrics.Register(registry); err != nil {
		return nil, fmt.Errorf("registering match metrics: %w", err)
	}

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTSecondarySecret)

	matchHandlers := api.NewMatchHandlers(api.MatchHandlersConfig{
		Store:           deps.repo,
		Presets:         presets,
		Metrics:         matchMetrics,
		Logger:          deps.logger,
		StrictThreshold: cfg.RankStrictThreshold,
		NearThreshold:   cfg.RankNearThreshold,
		MaxPoolSize:     cfg.RankMaxPoolSize,
	})
	profileHandlers := api.NewProfileHandlers(deps.repo, deps.logger)
	assignmentHandlers := api.NewAssignmentHandlers(deps.repo, deps.logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    deps.dbChecker,
		RedisChecker: deps.redisChecker,
	})

	keyFunc := middleware.RequesterKeyFunc()
	globalLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitPerMinute,
		WindowDuration:    time.Minute,
	}
	rankLimiter := middleware.RateLimiter(deps.rlStore, middleware.DefaultRankLimit(), keyFunc, httpMetrics)

	// Ranking endpoints get a stricter per-requester limit on top of the
	// global one.
	v1 := http.NewServeMux()
	v1.HandleFunc("/v1/match/score", matchHandlers.Score)
	v1.Handle("/v1/match/rank", rankLimiter(http.HandlerFunc(matchHandlers.Rank)))
	v1.Handle("/v1/match/near", rankLimiter(http.HandlerFunc(matchHandlers.Near)))
	v1.HandleFunc("/v1/profiles", profileHandlers.Collection)
	v1.HandleFunc("/v1/profiles/{id}", profileHandlers.ByID)
	v1.HandleFunc("/v1/assignments", assignmentHandlers.Collection)
	v1.HandleFunc("/v1/assignments/{id}", assignmentHandlers.ByID)

	protected := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
	})(
		middleware.RateLimiter(deps.rlStore, globalLimit, keyFunc, httpMetrics)(
			middleware.Auth(jwtService)(v1),
		),
	)

	mux := http.NewServeMux()
	mux.Handle("/v1/", protected)
	mux.HandleFunc("/healthz", healthHandlers.Health)
	mux.HandleFunc("/readyz", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"matchd-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	handler := middleware.RequestID(
		middleware.Tracing("matchd-api")(
			middleware.HTTPMetrics(httpMetrics)(
				middleware.Logging(deps.logger)(mux),
			),
		),
	)

	return handler, nil
}
