package worker

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"vodworks/internal/pkg/logger"
	"vodworks/internal/ports"
)

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	SP        ports.StorageProvider
	QueueName string
	WorkDir   string

	// Concurrency es la cantidad de consumers sobre la cola;
	// EncodeConcurrency acota los ffmpeg simultáneos entre todos ellos.
	Concurrency       int
	EncodeConcurrency int

	Log *logger.Logger
}
