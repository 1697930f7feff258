package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrScheduleIncomplete = errors.New("test with expiry needs both start_time and end_time")
	ErrScheduleOrder      = errors.New("start_time must be before end_time")
)

// TestDefinition is a college's offering of the entrance exam for one batch.
type TestDefinition struct {
	ID                  uuid.UUID  `json:"id"`
	TestID              string     `json:"test_id"`
	CollegeID           uuid.UUID  `json:"college_id"`
	BatchName           string     `json:"batch_name"`
	DurationMinutes     int        `json:"duration_minutes"`
	QuestionsPerTest    int        `json:"questions_per_test"`
	PassingScorePercent int        `json:"passing_score_percent"`
	AllowRetake         bool       `json:"allow_retake"`
	HasExpiry           bool       `json:"has_expiry"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ValidateSchedule checks the window invariant for tests with an expiry.
func (t *TestDefinition) ValidateSchedule() error {
	if !t.HasExpiry {
		return nil
	}
	if t.StartTime == nil || t.EndTime == nil {
		return ErrScheduleIncomplete
	}
	if !t.StartTime.Before(*t.EndTime) {
		return ErrScheduleOrder
	}
	return nil
}

// CreateTestRequest is the payload a college sends to create a test.
type CreateTestRequest struct {
	BatchName           string     `json:"batch_name" binding:"required,min=1,max=100"`
	DurationMinutes     int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	QuestionsPerTest    int        `json:"questions_per_test" binding:"required,min=1,max=200"`
	PassingScorePercent int        `json:"passing_score_percent" binding:"min=0,max=100"`
	AllowRetake         bool       `json:"allow_retake"`
	HasExpiry           bool       `json:"has_expiry"`
	StartTime           *time.Time `json:"start_time" binding:"required_if=HasExpiry true"`
	EndTime             *time.Time `json:"end_time" binding:"required_if=HasExpiry true"`
}
