package service

import (
	"math/rand/v2"
	"sync"

	"github.com/eduvista/entrance-backend/internal/model"
)

// QuestionSampler picks the paper for a new session.
type QuestionSampler interface {
	// SampleQuestions returns n distinct questions from pool in paper order.
	// It returns ErrNoQuestionsAvailable when pool has fewer than n.
	SampleQuestions(pool []model.Question, n int) ([]model.Question, error)
}

// RandomSampler draws a uniform sample without replacement.
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler seeds from the runtime's random source.
func NewRandomSampler() *RandomSampler {
	return NewSeededSampler(rand.Uint64(), rand.Uint64())
}

// NewSeededSampler returns a sampler whose draws are reproducible for a seed.
func NewSeededSampler(seed1, seed2 uint64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// SampleQuestions runs a partial Fisher-Yates shuffle over a copy of pool.
func (s *RandomSampler) SampleQuestions(pool []model.Question, n int) ([]model.Question, error) {
	if n < 0 || len(pool) < n {
		return nil, ErrNoQuestionsAvailable
	}

	picked := make([]model.Question, len(pool))
	copy(picked, pool)

	s.mu.Lock()
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	s.mu.Unlock()

	return picked[:n], nil
}
