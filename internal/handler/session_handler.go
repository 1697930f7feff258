package handler

import (
	"net/http"

	"github.com/eduvista/entrance-backend/internal/middleware"
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/eduvista/entrance-backend/internal/scoring"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/eduvista/entrance-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles the student-facing test session endpoints.
type SessionHandler struct {
	sessionService *service.TestSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.TestSessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// RequestSession godoc
// POST /api/v1/student/sessions
// Admits the student to a test and returns the session id. Repeating the
// call while a session is open returns the same id.
func (h *SessionHandler) RequestSession(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.RequestSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// The token decides who the student is; a body id may only confirm it.
	if req.StudentID != nil && *req.StudentID != id.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	sess, err := h.sessionService.RequestSession(c.Request.Context(), service.AdmissionRequest{
		StudentID: id.UserID,
		TestID:    req.TestID,
		CollegeID: req.CollegeID,
		BatchName: req.BatchName,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session_id": sess.ID,
		"status":     sess.Status,
	})
}

// StartSession godoc
// POST /api/v1/student/sessions/:id/start
// Starts the timer and returns the paper without the answer key.
func (h *SessionHandler) StartSession(c *gin.Context) {
	id, sessionID, ok := sessionParams(c)
	if !ok {
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.StartSession(c.Request.Context(), sessionID, id.UserID, req.TestID, req.CollegeID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// RecordAnswer godoc
// PATCH /api/v1/student/sessions/:id/answer
func (h *SessionHandler) RecordAnswer(c *gin.Context) {
	id, sessionID, ok := sessionParams(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.sessionService.RecordAnswer(c.Request.Context(), sessionID, id.UserID, req.QuestionID, *req.SelectedAnswer, req.TimeSpent)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SubmitSession godoc
// POST /api/v1/student/sessions/:id/submit
// Scores the session and completes it. A second submission fails.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	id, sessionID, ok := sessionParams(c)
	if !ok {
		return
	}

	var req model.SubmitSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.SubmitSession(c.Request.Context(), sessionID, id.UserID, toScoringAnswers(req.Answers))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetSession godoc
// GET /api/v1/student/sessions/:id
// Covers page reloads: returns the paper and remaining time while the
// session is open, or the corrected answers once it is completed.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, sessionID, ok := sessionParams(c)
	if !ok {
		return
	}

	view, err := h.sessionService.GetSession(c.Request.Context(), sessionID, id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// sessionParams reads the caller and the :id path parameter, writing the
// error response itself when either is missing.
func sessionParams(c *gin.Context) (*service.Identity, uuid.UUID, bool) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return id, sessionID, true
}

func toScoringAnswers(in []model.SubmittedAnswer) []scoring.Answer {
	out := make([]scoring.Answer, len(in))
	for i, a := range in {
		out[i] = scoring.Answer{
			QuestionID:          a.QuestionID,
			SelectedAnswerIndex: *a.SelectedAnswer,
			TimeSpentSeconds:    a.TimeSpent,
		}
	}
	return out
}
