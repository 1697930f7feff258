package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key holding the JTI of a student's current login.
func (r *CacheKeyStruct) StudentLoginKey(studentID uuid.UUID) string {
	return fmt.Sprintf("login:student:%s", studentID)
}

// ActiveQuestionPoolKey returns the cache key for the serialized pool of active questions.
func (r *CacheKeyStruct) ActiveQuestionPoolKey() string {
	return "questions:active_pool"
}

// RateLimitKey returns the fixed-window counter key for a client on a route group.
func (r *CacheKeyStruct) RateLimitKey(group, clientIP string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", group, clientIP, window)
}

var CacheKey = NewCacheKeyStruct()
