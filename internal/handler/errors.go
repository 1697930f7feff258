package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type errorMapping struct {
	target error
	status int
	code   response.ErrCode
}

// serviceErrors maps service sentinels to their HTTP status and API code.
// Order matters only for errors that wrap more than one sentinel.
var serviceErrors = []errorMapping{
	{service.ErrValidation, http.StatusBadRequest, response.ErrValidation},
	{service.ErrInvalidLink, http.StatusNotFound, response.ErrInvalidLink},
	{service.ErrInvalidTest, http.StatusNotFound, response.ErrInvalidTest},
	{service.ErrMisconfiguredSchedule, http.StatusConflict, response.ErrMisconfiguredSchedule},
	{service.ErrNotYetOpen, http.StatusForbidden, response.ErrNotYetOpen},
	{service.ErrWindowClosed, http.StatusForbidden, response.ErrWindowClosed},
	{service.ErrInsufficientTime, http.StatusForbidden, response.ErrInsufficientTime},
	{service.ErrNotRegistered, http.StatusForbidden, response.ErrNotRegistered},
	{service.ErrAlreadyCompleted, http.StatusConflict, response.ErrAlreadyCompleted},
	{service.ErrNoQuestionsAvailable, http.StatusServiceUnavailable, response.ErrNoQuestionsAvailable},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrInvalidTransition, http.StatusConflict, response.ErrInvalidTransition},
	{service.ErrSessionNotActive, http.StatusConflict, response.ErrSessionNotActive},
	{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrEmailTaken, http.StatusConflict, response.ErrConflict},
	{service.ErrCollegeNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrNotFound},
}

// classify returns the HTTP status and API code for a service error.
func classify(err error) (int, response.ErrCode) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	var pe *service.PersistenceError
	if errors.As(err, &pe) {
		return http.StatusServiceUnavailable, response.ErrPersistence
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// detailOf returns the reason appended to a sentinel, e.g. the time a window
// opens. Bare sentinels have no detail.
func detailOf(err error) string {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			_, rest, found := strings.Cut(err.Error(), m.target.Error()+": ")
			if found {
				return rest
			}
			return ""
		}
	}
	return ""
}

// writeError sends the envelope for a service error. Server-side failures
// are logged; rule denials are not.
func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && code != response.ErrNoQuestionsAvailable {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("code", string(code)).Msg("Request failed")
	}
	response.FailWithDetail(c, status, code, detailOf(err))
}
