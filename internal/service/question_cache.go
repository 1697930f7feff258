package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisPoolCache keeps the serialized active pool in a single Redis key.
type RedisPoolCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPoolCache creates a new RedisPoolCache.
func NewRedisPoolCache(rdb *redis.Client, ttl time.Duration) *RedisPoolCache {
	return &RedisPoolCache{rdb: rdb, ttl: ttl}
}

// Load returns the cached pool; ok is false on a cache miss.
func (c *RedisPoolCache) Load(ctx context.Context) ([]model.Question, bool, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.ActiveQuestionPoolKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get pool: %w", err)
	}

	var pool []model.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, false, fmt.Errorf("decode pool: %w", err)
	}
	return pool, true, nil
}

// Store replaces the cached pool.
func (c *RedisPoolCache) Store(ctx context.Context, questions []model.Question) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.ActiveQuestionPoolKey(), raw, c.ttl).Err()
}

// Invalidate drops the cached pool so the next read goes to the database.
func (c *RedisPoolCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, config.CacheKey.ActiveQuestionPoolKey()).Err()
}
