package database

import (
	"context"
	"fmt"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient connects the client used for login sessions, rate limits,
// the question pool cache and the student result queue.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	// Results left over from a previous run are drained by the result worker.
	backlog, err := rdb.LLen(ctx, config.WorkerKey.PersistStudentResultsQueue).Result()
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("read result queue length: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Int64("pending_results", backlog).
		Msg("Redis connected")

	return rdb, nil
}
