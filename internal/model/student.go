package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentTestStatus is the student-level projection of their latest session.
type StudentTestStatus string

const (
	StudentTestNotStarted StudentTestStatus = "not_started"
	StudentTestInProgress StudentTestStatus = "in_progress"
	StudentTestCompleted  StudentTestStatus = "completed"
)

// Student is bound to exactly one college at registration.
type Student struct {
	ID                 uuid.UUID         `json:"id"`
	CollegeID          uuid.UUID         `json:"college_id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	PasswordHash       string            `json:"-"`
	TestStatus         StudentTestStatus `json:"test_status"`
	LastTestScore      *int              `json:"last_test_score,omitempty"`
	LastTestPercentage *int              `json:"last_test_percentage,omitempty"`
	LastTestPassed     *bool             `json:"last_test_passed,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// RegisterStudentRequest is the payload for student self-registration.
type RegisterStudentRequest struct {
	CollegeID uuid.UUID `json:"college_id" binding:"required"`
	Name      string    `json:"name" binding:"required,min=2,max=100"`
	Email     string    `json:"email" binding:"required,email,max=255"`
	Password  string    `json:"password" binding:"required,min=6,max=128"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	CollegeID uuid.UUID `json:"college_id" binding:"required"`
	Email     string    `json:"email" binding:"required,email,max=255"`
	Password  string    `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}
