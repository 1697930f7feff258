package middleware

import (
	"errors"
	"net/http"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only when the authenticated identity
// holds one of roles. It must run after Authenticate.
func RequireRole(authService *service.AuthService, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authService.Authorize(GetIdentity(c), roles...)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrUnauthenticated):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		default:
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
		}
	}
}
