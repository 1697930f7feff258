package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/eduvista/entrance-backend/internal/scoring"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/eduvista/entrance-backend/internal/validator"
	ws "github.com/eduvista/entrance-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams autosave and submit over a WebSocket for one session.
type WSHandler struct {
	sessionService *service.TestSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.TestSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:id/stream
// The session must be active before the upgrade. The connection closes
// after a successful submit.
func (h *WSHandler) SessionStream(c *gin.Context) {
	id, sessionID, ok := sessionParams(c)
	if !ok {
		return
	}

	// Reject before upgrading so the client gets a normal HTTP error.
	view, err := h.sessionService.GetSession(c.Request.Context(), sessionID, id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	if view.Session.Status != model.SessionStatusActive {
		writeError(c, service.ErrSessionNotActive)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", id.UserID.String()).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	// The request context ends with the handler; it outlives every message.
	ctx := c.Request.Context()

	for {
		data, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			ws.WriteError(conn, string(response.ErrValidation), "malformed message", nil)
			continue
		}

		switch env.Action {
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionAutosave:
			h.handleAutosave(ctx, conn, id.UserID, sessionID, data)
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, conn, wsLog, id.UserID, sessionID, data) {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "submitted"),
					time.Now().Add(time.Second))
				return
			}
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrValidation), "unknown action: "+string(env.Action), nil)
		}
	}
}

// handleAutosave records one answer on the session.
func (h *WSHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, studentID, sessionID uuid.UUID, data []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		ws.WriteError(conn, string(response.ErrValidation), "malformed autosave", nil)
		return
	}
	if fields := validator.Struct(&msg); fields != nil {
		ws.WriteError(conn, string(response.ErrValidation), response.GetMessage(response.ErrValidation), fields)
		return
	}

	err := h.sessionService.RecordAnswer(ctx, sessionID, studentID, msg.QuestionID, *msg.SelectedAnswer, msg.TimeSpent)
	if err != nil {
		writeWSError(conn, err)
		return
	}
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

// handleSubmit scores the session and reports whether it completed.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID, sessionID uuid.UUID, data []byte) bool {
	var msg ws.SubmitRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		ws.WriteError(conn, string(response.ErrValidation), "malformed submit", nil)
		return false
	}
	if fields := validator.Struct(&msg); fields != nil {
		ws.WriteError(conn, string(response.ErrValidation), response.GetMessage(response.ErrValidation), fields)
		return false
	}

	answers := make([]scoring.Answer, len(msg.Answers))
	for i, a := range msg.Answers {
		answers[i] = scoring.Answer{
			QuestionID:          a.QuestionID,
			SelectedAnswerIndex: *a.SelectedAnswer,
			TimeSpentSeconds:    a.TimeSpent,
		}
	}

	result, err := h.sessionService.SubmitSession(ctx, sessionID, studentID, answers)
	if err != nil {
		writeWSError(conn, err)
		return false
	}

	wsLog.Info().
		Int("score", result.Score).
		Int("total", result.TotalQuestions).
		Msg("Session submitted over WebSocket")
	ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Result: result})
	return true
}

func writeWSError(conn *websocket.Conn, err error) {
	_, code := classify(err)
	msg := response.GetMessage(code)
	if d := detailOf(err); d != "" {
		msg += " " + d
	}
	ws.WriteError(conn, string(code), msg, nil)
}
