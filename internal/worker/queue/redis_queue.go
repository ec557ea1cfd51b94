package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TranscodeJob es el payload que viaja por la cola entre el API y el worker.
// ObjectKey apunta al video original ya subido al storage.
type TranscodeJob struct {
	VideoID        string `json:"video_id"`
	ObjectKey      string `json:"object_key"`
	Filename       string `json:"filename"`
	BenchmarkRunID string `json:"benchmark_run_id,omitempty"`
}

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

// Enqueue publica el job; el intake lo llama una sola vez por upload aceptado.
func (q *RedisQueue) Enqueue(ctx context.Context, job TranscodeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal transcode job: %w", err)
	}
	return q.rdb.LPush(ctx, q.queueName, payload).Err()
}

// Pop bloquea hasta que exista un elemento (BRPOP)
func (q *RedisQueue) Pop(ctx context.Context) (TranscodeJob, error) {
	res, err := q.rdb.BRPop(ctx, 0, q.queueName).Result()
	if err != nil {
		return TranscodeJob{}, err
	}
	if len(res) < 2 {
		return TranscodeJob{}, fmt.Errorf("unexpected BRPOP reply: %v", res)
	}

	var job TranscodeJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return TranscodeJob{}, fmt.Errorf("unmarshal transcode job: %w", err)
	}
	return job, nil
}
