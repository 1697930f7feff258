package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// College owns test definitions and the students registered under it.
type College struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	RegisteredTestIDs []string  `json:"registered_test_ids"`
	CreatedAt         time.Time `json:"created_at"`
}

// HasTest reports whether testID is in the college's registered list.
func (c *College) HasTest(testID string) bool {
	return slices.Contains(c.RegisteredTestIDs, testID)
}

// RegisterCollegeRequest is the payload for college self-registration.
type RegisterCollegeRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// CollegeLoginRequest is the payload for college authentication.
type CollegeLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// CollegeLoginResponse is returned after successful college login or registration.
type CollegeLoginResponse struct {
	Token   string  `json:"token"`
	College College `json:"college"`
}
