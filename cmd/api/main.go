// Package main is the entry point for the feed API server.
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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vicinity-social/vicinity-feed/internal/api"
	"github.com/vicinity-social/vicinity-feed/internal/auth"
	"github.com/vicinity-social/vicinity-feed/internal/config"
	"github.com/vicinity-social/vicinity-feed/internal/feed"
	"github.com/vicinity-social/vicinity-feed/internal/health"
	"github.com/vicinity-social/vicinity-feed/internal/middleware"
	"github.com/vicinity-social/vicinity-feed/internal/store"
	"github.com/vicinity-social/vicinity-feed/internal/tracing"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	if *help {
		fmt.Println("Vicinity Feed API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, len(summary)*2)
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	// Tracing
	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "vicinity-feed",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.SamplingRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Redis is optional: without it the profile cache is skipped and
	// rate limiting falls back to the in-memory store.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	feedMetrics := feed.NewMetrics()
	if err := feedMetrics.Register(registry); err != nil {
		logger.Error("failed to register feed metrics", "error", err)
		os.Exit(1)
	}

	// Ranking engine
	weights, err := feed.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("calibration load failed, running with defaults", "error", err)
	}

	pgStore := store.NewPostgresStore(db)
	var profiles feed.ProfileSource = pgStore
	if redisClient != nil {
		profiles = store.NewCachedProfiles(redisClient, pgStore, store.DefaultProfileTTL)
	}

	engine := feed.NewEngine(pgStore, profiles,
		feed.WithWeights(weights),
		feed.WithMetrics(feedMetrics),
	)

	// Auth
	jwtSvc := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)

	// Rate limiting
	var rateLimitStore middleware.RateLimitStore
	if redisClient != nil {
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient, httpMetrics)
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			for range time.Tick(5 * time.Minute) {
				memStore.Cleanup()
			}
		}()
		rateLimitStore = memStore
	}
	feedLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.FeedRateLimitPerMinute,
		WindowDuration:    time.Minute,
	}
	if err := feedLimit.Validate(); err != nil {
		logger.Error("invalid rate limit config", "error", err)
		os.Exit(1)
	}

	// Handlers
	feedHandlers := api.NewFeedHandlers(engine, profiles)
	healthConfig := api.HealthHandlersConfig{
		DBChecker: health.NewDBChecker(db),
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	feedChain := api.RequireAuth(jwtSvc)(
		middleware.RateLimiter(rateLimitStore, feedLimit, middleware.ViewerKeyFunc(), httpMetrics)(
			http.HandlerFunc(feedHandlers.GetSuggestedPosts),
		),
	)
	mux.Handle("/get-suggested-posts", feedChain)

	// Apply middleware: RequestID -> Tracing -> Logging -> HTTPMetrics
	handler := middleware.RequestID(
		middleware.Tracing("vicinity-feed")(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(httpMetrics)(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		logger.Error("tracing shutdown failed", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("database close failed", "error", err)
	}

	logger.Info("server stopped")
}
