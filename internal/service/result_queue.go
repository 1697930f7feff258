package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StudentResultEvent updates the result fields on the student record.
// Score, Percentage and IsPassed are only set for completed sessions.
// OccurredAt is the session's start or end time; an event older than the
// one already applied to the student is ignored.
type StudentResultEvent struct {
	StudentID  uuid.UUID               `json:"student_id"`
	SessionID  uuid.UUID               `json:"session_id"`
	Status     model.StudentTestStatus `json:"status"`
	Score      *int                    `json:"score,omitempty"`
	Percentage *int                    `json:"percentage,omitempty"`
	IsPassed   *bool                   `json:"is_passed,omitempty"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// ResultPublisher hands student result events to the background projection.
type ResultPublisher interface {
	Publish(ctx context.Context, ev StudentResultEvent) error
}

// RedisResultQueue pushes events onto the list consumed by worker.ResultWorker.
type RedisResultQueue struct {
	rdb *redis.Client
}

// NewRedisResultQueue creates a new RedisResultQueue.
func NewRedisResultQueue(rdb *redis.Client) *RedisResultQueue {
	return &RedisResultQueue{rdb: rdb}
}

// Publish appends ev to the result queue.
func (q *RedisResultQueue) Publish(ctx context.Context, ev StudentResultEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode result event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistStudentResultsQueue, raw).Err()
}
