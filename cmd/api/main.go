package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"vodworks/internal/config"
	"vodworks/internal/httpapi"
	"vodworks/internal/pkg/logger"
	"vodworks/internal/pkg/shutdown"
	"vodworks/internal/repositories"
	"vodworks/internal/storage"
)

func main() {
	processStart := time.Now()

	cfg := config.Load()

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "vodworks-api",
		AddSource:   cfg.LogSource,
	})

	log.Info("starting vodworks API",
		"version", "0.1.0",
	)

	requireConfig(log, "DATABASE_URL", cfg.DatabaseURL)
	requireConfig(log, "REDIS_ADDR", cfg.RedisAddr)
	requireConfig(log, "JWT_SECRET", cfg.JWTSecret)

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Connect to PostgreSQL
	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// Verify PostgreSQL connection
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	// Connect to Redis
	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	// Verify Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	// Initialize storage provider
	log.Info("initializing storage provider")
	sp, err := storage.NewProvider(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	// Create HTTP router
	router := httpapi.NewRouter(httpapi.Deps{
		Pool: pool,
		RDB:  rdb,
		SP:   sp,
		Cfg:  cfg,
		Log:  log,
	})

	// Create HTTP server. Multipart uploads up to 2 GiB and long HLS
	// downloads rule out global read/write timeouts.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Register server shutdown
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", cfg.HTTPPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	recordStartup(ctx, log, pool, cfg.HTTPPort, processStart)

	// Wait for shutdown signal
	shutdownMgr.Wait()
}

// recordStartup stores one cold-start sample for this boot. Cloud Run
// injects K_SERVICE/K_REVISION; elsewhere the service name is static.
func recordStartup(ctx context.Context, log *logger.Logger, pool *pgxpool.Pool, port string, processStart time.Time) {
	service := os.Getenv("K_SERVICE")
	if service == "" {
		service = "vodworks-api"
	}
	var revision *string
	if rev := os.Getenv("K_REVISION"); rev != "" {
		revision = &rev
	}

	metrics := repositories.NewMetricsRepository(pool)
	err := metrics.RecordServerStartup(ctx, service, revision, true,
		time.Since(processStart).Milliseconds(), map[string]any{"port": port})
	if err != nil {
		log.Warn("failed to record server startup", "error", err)
	}
}

// requireConfig exits when a required configuration value is missing.
func requireConfig(log *logger.Logger, key, value string) {
	if value == "" {
		log.Error("missing required environment variable", "key", key)
		os.Exit(1)
	}
}
