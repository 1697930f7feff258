package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates test session states. Transitions only go forward:
// pending -> active -> completed.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Unanswered is the selected index of a question the student has not answered.
const Unanswered = -1

// SessionQuestion is one attached question and the student's answer to it.
// CorrectOptionIndex and Explanation are only filled once the session is scored.
type SessionQuestion struct {
	QuestionID          uuid.UUID `json:"question_id"`
	SelectedAnswerIndex int       `json:"selected_answer_index"`
	IsCorrect           bool      `json:"is_correct"`
	TimeSpentSeconds    int       `json:"time_spent_seconds"`
	CorrectOptionIndex  *int      `json:"correct_option_index,omitempty"`
	Explanation         string    `json:"explanation,omitempty"`
}

// TestSession is one student's attempt at a test definition.
type TestSession struct {
	ID                uuid.UUID         `json:"id"`
	StudentID         uuid.UUID         `json:"student_id"`
	CollegeID         uuid.UUID         `json:"college_id"`
	TestID            string            `json:"test_id"`
	TestDefinitionID  uuid.UUID         `json:"test_definition_id"`
	BatchName         string            `json:"batch_name"`
	Status            SessionStatus     `json:"status"`
	StartTime         *time.Time        `json:"start_time,omitempty"`
	EndTime           *time.Time        `json:"end_time,omitempty"`
	Duration          int               `json:"duration"`
	Score             int               `json:"score"`
	Percentage        int               `json:"percentage"`
	IsPassed          bool              `json:"is_passed"`
	PassingPercentage int               `json:"passing_percentage"`
	Questions         []SessionQuestion `json:"questions"`
	IPAddress         string            `json:"ip_address,omitempty"`
	UserAgent         string            `json:"user_agent,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsOpen reports whether the session can still be resumed.
func (s *TestSession) IsOpen() bool {
	return s.Status == SessionStatusPending || s.Status == SessionStatusActive
}

// QuestionIDs returns the attached question ids in paper order.
func (s *TestSession) QuestionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.QuestionID
	}
	return ids
}

// QuestionIndex returns the slot of questionID, or -1.
func (s *TestSession) QuestionIndex(questionID uuid.UUID) int {
	for i, q := range s.Questions {
		if q.QuestionID == questionID {
			return i
		}
	}
	return -1
}

// RequestSessionRequest asks admission control for a session.
// StudentID is optional; the authenticated identity is authoritative.
type RequestSessionRequest struct {
	StudentID *uuid.UUID `json:"student_id"`
	TestID    string     `json:"test_id" binding:"required,max=64"`
	CollegeID uuid.UUID  `json:"college_id" binding:"required"`
	BatchName string     `json:"batch_name" binding:"required,max=100"`
}

// StartSessionRequest starts a pending session.
type StartSessionRequest struct {
	TestID    string    `json:"test_id" binding:"required,max=64"`
	CollegeID uuid.UUID `json:"college_id" binding:"required"`
}

// RecordAnswerRequest autosaves one answer.
type RecordAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer *int      `json:"selected_answer" binding:"required,min=-1"`
	TimeSpent      int       `json:"time_spent" binding:"min=0"`
}

// SubmittedAnswer is one entry of a final submission.
type SubmittedAnswer struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer *int      `json:"selected_answer" binding:"required,min=-1"`
	TimeSpent      int       `json:"time_spent" binding:"min=0"`
}

// SubmitSessionRequest finishes a session.
type SubmitSessionRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"dive"`
}

// StartSessionResponse is the started session with its paper.
type StartSessionResponse struct {
	Session   *TestSession         `json:"session"`
	Questions []QuestionForStudent `json:"questions"`
}

// SessionResult is returned once a session is scored.
type SessionResult struct {
	SessionID        uuid.UUID         `json:"session_id"`
	Score            int               `json:"score"`
	Percentage       int               `json:"percentage"`
	TotalQuestions   int               `json:"total_questions"`
	IsPassed         bool              `json:"is_passed"`
	CorrectedAnswers []SessionQuestion `json:"corrected_answers"`
}
