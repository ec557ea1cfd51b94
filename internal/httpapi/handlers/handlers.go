package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"vodworks/internal/config"
	"vodworks/internal/pkg/logger"
	"vodworks/internal/ports"
	"vodworks/internal/repositories"
	"vodworks/internal/worker/queue"
)

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Cfg  *config.Config
	Log  *logger.Logger
}

type Handler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	sp      ports.StorageProvider
	cfg     *config.Config
	log     *logger.Logger
	queue   *queue.RedisQueue
	users   *repositories.UserRepository
	videos  *repositories.VideoRepository
	metrics *repositories.MetricsRepository
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:    d.Pool,
		rdb:     d.RDB,
		sp:      d.SP,
		cfg:     d.Cfg,
		log:     log.WithComponent("api"),
		queue:   queue.NewRedisQueue(d.RDB, d.Cfg.QueueName),
		users:   repositories.NewUserRepository(d.Pool),
		videos:  repositories.NewVideoRepository(d.Pool),
		metrics: repositories.NewMetricsRepository(d.Pool),
	}
}
