package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimiter is a per-IP fixed-window limiter whose counters live in Redis,
// so every server instance shares the same budget.
type RateLimiter struct {
	rdb    *redis.Client
	group  string
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit requests per window for each client IP.
func NewRateLimiter(rdb *redis.Client, group string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, group: group, limit: limit, window: window}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// Redis failures let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		slot := time.Now().UnixNano() / int64(rl.window)
		key := config.CacheKey.RateLimitKey(rl.group, c.ClientIP(), slot)

		pipe := rl.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.window)
		if _, err := pipe.Exec(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("group", rl.group).Msg("Rate limit check failed")
			c.Next()
			return
		}

		count := incr.Val()
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(int64(rl.limit)-count, 0), 10))

		if count > int64(rl.limit) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
