package websocket

import "github.com/google/uuid"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest records one answer on an active session.
type AutosaveRequest struct {
	Action         Action    `json:"action"`
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer *int      `json:"selected_answer" binding:"required,min=-1"`
	TimeSpent      int       `json:"time_spent" binding:"min=0"`
}

// SubmitRequest finishes the session. Answers may be omitted when every
// answer was autosaved.
type SubmitRequest struct {
	Action  Action           `json:"action"`
	Answers []SubmittedEntry `json:"answers" binding:"omitempty,dive"`
}

// SubmittedEntry is one answer inside a SubmitRequest.
type SubmittedEntry struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer *int      `json:"selected_answer" binding:"required,min=-1"`
	TimeSpent      int       `json:"time_spent" binding:"min=0"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

type SavedResponse struct {
	Event      Event     `json:"event"`
	QuestionID uuid.UUID `json:"question_id"`
}

// GradedResponse carries the final result of a submitted session.
type GradedResponse struct {
	Event  Event       `json:"event"`
	Result interface{} `json:"result"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
