// Package queue hands finished-payment notifications to the worker that
// talks to users, keeping outbound messaging off the webhook path.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"waveshop/internal/shared/biztime"
)

const defaultQueueKey = "waveshop:tasks"

// RedisQueue is a list-backed task queue. Producers LPUSH envelopes; the
// worker BRPOPs them.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

type taskEnvelope struct {
	Task       string `json:"task"`
	Payload    any    `json:"payload"`
	EnqueuedAt string `json:"enqueued_at"`
}

func (q *RedisQueue) Enqueue(ctx context.Context, task string, payload any) error {
	envelope := taskEnvelope{
		Task:       task,
		Payload:    payload,
		EnqueuedAt: biztime.FormatMetadataTime(biztime.NowUTC()),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal task envelope: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// Dequeue blocks until a task is available or the context ends.
func (q *RedisQueue) Dequeue(ctx context.Context) (string, []byte, error) {
	res, err := q.client.BRPop(ctx, 0, q.key).Result()
	if err != nil {
		return "", nil, fmt.Errorf("failed to dequeue task: %w", err)
	}

	// BRPop returns [key, value].
	var envelope struct {
		Task    string          `json:"task"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(res[1]), &envelope); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal task envelope: %w", err)
	}

	return envelope.Task, envelope.Payload, nil
}
