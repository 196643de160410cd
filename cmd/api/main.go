package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plumehq/plume-backend/internal/api"
	"github.com/plumehq/plume-backend/internal/config"
	gdb "github.com/plumehq/plume-backend/internal/db"
	"github.com/plumehq/plume-backend/internal/jobs"
	"github.com/plumehq/plume-backend/internal/log"
	"github.com/plumehq/plume-backend/internal/metrics"
	"github.com/plumehq/plume-backend/internal/posts"
	"github.com/plumehq/plume-backend/internal/render"
	"github.com/plumehq/plume-backend/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting Plume API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("plume-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Initialize database
	db := gdb.MustNewDatabase(&gdb.Config{
		Type: "postgres",
		DSN:  cfg.Database.PostgresDSN,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gdb.ConnectAndMigrate(ctx, db, gdb.AllSchemas()); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	logger.Infow("Database initialized")

	// Setup cache
	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	if err := cache.Ping(ctx); err != nil {
		logger.Fatalw("Cache ping failed", "error", err)
	}
	logger.Infow("Cache connection established")

	// Setup editorial pipeline
	renderer := render.NewRenderer(logger, metricsObj)
	postsSvc := posts.NewService(db, renderer, cache, logger, metricsObj, posts.Limits{
		TitleMaxLen:     cfg.Content.TitleMaxLen,
		HookMaxLen:      cfg.Content.HookMaxLen,
		PreviewMaxChars: cfg.Content.PreviewMaxChars,
		SubmitPerHour:   cfg.Content.SubmitPerHour,
		RenderTTL:       cfg.Cache.RenderTTL,
	})

	// Keep the public feed and tag caches warm in the background
	warmer := jobs.NewCacheWarmer(postsSvc, logger, jobs.CacheWarmerConfig{
		Interval: cfg.Cache.WarmInterval,
	})
	go func() {
		if err := warmer.Start(context.Background()); err != nil && err != context.Canceled {
			logger.Warnw("Cache warmer exited", "error", err)
		}
	}()
	defer warmer.Stop()

	// Setup API handler and middleware
	handler := api.NewHandler(postsSvc, db, cache, logger)
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM, metricsHandler)
	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
