package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"vodworks/internal/media/ffmpeg"
	"vodworks/internal/media/probe"
	"vodworks/internal/pkg/logger"
	"vodworks/internal/repositories"
	"vodworks/internal/worker/processor"
	"vodworks/internal/worker/queue"
)

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)
	runner := ffmpeg.CommandRunner{}

	p := processor.New(processor.Deps{
		Videos:            repositories.NewVideoRepository(d.Pool),
		Metrics:           repositories.NewMetricsRepository(d.Pool),
		SP:                d.SP,
		Encoder:           ffmpeg.New(runner),
		Prober:            probe.New(runner),
		WorkDir:           d.WorkDir,
		EncodeConcurrency: d.EncodeConcurrency,
		Log:               log,
	})

	consumers := d.Concurrency
	if consumers < 1 {
		consumers = 1
	}
	log.Info("worker started", "consumers", consumers, "queue", d.QueueName)

	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func(consumer int) {
			defer wg.Done()
			consume(ctx, log.WithFields(map[string]any{"consumer": consumer}), q, p)
		}(i)
	}
	wg.Wait()

	log.Info("worker stopped")
	return ctx.Err()
}

func consume(ctx context.Context, log *logger.Logger, q *queue.RedisQueue, p *processor.Processor) {
	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return
		default:
		}

		// Use a separate context with timeout for queue operations
		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		job, err := q.Pop(popCtx)
		cancel()

		if err != nil {
			// Check if it's a context cancellation
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return
			}

			// La ventana de 30s venció sin jobs: no es un error.
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
				continue
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			time.Sleep(1 * time.Second)
			continue
		}

		if job.VideoID == "" {
			continue
		}

		// Create a context for this job
		jobCtx := logger.ContextWithJobID(ctx, job.VideoID)
		jobLog := log.WithJobID(job.VideoID)

		jobLog.Info("processing job")
		startTime := time.Now()

		if err := p.ProcessJob(jobCtx, job); err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		} else {
			jobLog.Info("job completed",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		}
	}
}
