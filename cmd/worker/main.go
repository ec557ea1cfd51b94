package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"vodworks/internal/config"
	"vodworks/internal/media/ffmpeg"
	"vodworks/internal/pkg/logger"
	"vodworks/internal/repositories"
	"vodworks/internal/storage"
	"vodworks/internal/worker"
)

func main() {
	processStart := time.Now()

	cfg := config.Load()

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "vodworks-worker",
		AddSource:   cfg.LogSource,
	})

	log.Info("starting vodworks worker",
		"version", "0.1.0",
	)

	requireConfig(log, "DATABASE_URL", cfg.DatabaseURL)
	requireConfig(log, "REDIS_ADDR", cfg.RedisAddr)

	// Sin ffmpeg/ffprobe en PATH no hay nada que consumir.
	if err := ffmpeg.Check(); err != nil {
		log.LogFatal("transcoding tools unavailable", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	// Initialize storage provider
	sp, err := storage.NewProvider(ctx, cfg)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	recordStartup(ctx, log, pool, cfg.QueueName, processStart)

	deps := worker.Deps{
		Pool:              pool,
		RDB:               rdb,
		SP:                sp,
		QueueName:         cfg.QueueName,
		WorkDir:           cfg.WorkDir,
		Concurrency:       cfg.WorkerConcurrency,
		EncodeConcurrency: cfg.EncodeConcurrency,
		Log:               log,
	}

	log.Info("worker consuming",
		"queue", cfg.QueueName,
		"concurrency", cfg.WorkerConcurrency,
		"encode_concurrency", cfg.EncodeConcurrency,
	)
	if err := worker.Run(ctx, deps); err != nil && !errors.Is(err, context.Canceled) {
		log.LogFatal("worker stopped unexpectedly", err)
	}
	log.Info("worker stopped")
}

// recordStartup stores one cold-start sample for this boot.
func recordStartup(ctx context.Context, log *logger.Logger, pool *pgxpool.Pool, queue string, processStart time.Time) {
	service := os.Getenv("K_SERVICE")
	if service == "" {
		service = "vodworks-worker"
	}
	var revision *string
	if rev := os.Getenv("K_REVISION"); rev != "" {
		revision = &rev
	}

	metrics := repositories.NewMetricsRepository(pool)
	err := metrics.RecordServerStartup(ctx, service, revision, true,
		time.Since(processStart).Milliseconds(), map[string]any{"queue": queue})
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
