package service

import (
	"errors"
	"fmt"
)

// Admission and state machine errors. Callers match them with errors.Is; the
// wrapped message carries the human-readable reason where one exists.
var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidLink           = errors.New("test is not registered under this college")
	ErrInvalidTest           = errors.New("no test matches this college and batch")
	ErrMisconfiguredSchedule = errors.New("test has an expiry but no complete window")
	ErrNotYetOpen            = errors.New("test window has not opened")
	ErrWindowClosed          = errors.New("test window has closed")
	ErrInsufficientTime      = errors.New("not enough time left in the test window")
	ErrNotRegistered         = errors.New("student is not registered with this college")
	ErrAlreadyCompleted      = errors.New("test already completed and retakes are not allowed")
	ErrNoQuestionsAvailable  = errors.New("not enough active questions in the bank")
	ErrSessionNotFound       = errors.New("session not found")
	ErrInvalidTransition     = errors.New("session cannot be started from its current status")
	ErrSessionNotActive      = errors.New("session is not active")
	ErrAlreadySubmitted      = errors.New("session already submitted")
)

// Account errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrCollegeNotFound    = errors.New("college not found")
	ErrQuestionNotFound   = errors.New("question not found")
)

// PersistenceError wraps a storage failure so handlers can tell it apart from
// a business rule denial.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
