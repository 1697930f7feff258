package router

import (
	"net/http"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/eduvista/entrance-backend/internal/handler"
	"github.com/eduvista/entrance-backend/internal/middleware"
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Session  *handler.SessionHandler
	College  *handler.CollegeHandler
	Question *handler.QuestionHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	rdb *redis.Client,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every handler share its logger.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.AccessLog())
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	authenticate := middleware.Authenticate(authService)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(rdb, "auth", cfg.AuthRateLimit, time.Minute)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/admin/login", handlers.Auth.AdminLogin)
		auth.POST("/college/register", handlers.Auth.CollegeRegister)
		auth.POST("/college/login", handlers.Auth.CollegeLogin)
		auth.POST("/student/register", handlers.Auth.StudentRegister)
		auth.POST("/student/login", handlers.Auth.StudentLogin)

		studentOnly := []gin.HandlerFunc{
			authenticate,
			middleware.RequireRole(authService, model.RoleStudent),
			middleware.CheckSingleDeviceSession(authService),
		}
		auth.POST("/student/logout", append(studentOnly, handlers.Auth.StudentLogout)...)
		auth.GET("/student/me", append(studentOnly, handlers.Auth.GetStudentProfile)...)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		authenticate,
		middleware.RequireRole(authService, model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.POST("/sessions", handlers.Session.RequestSession)
		studentAPI.GET("/sessions/:id", handlers.Session.GetSession)
		studentAPI.POST("/sessions/:id/start", handlers.Session.StartSession)
		studentAPI.PATCH("/sessions/:id/answer", handlers.Session.RecordAnswer)
		studentAPI.POST("/sessions/:id/submit", handlers.Session.SubmitSession)
	}

	// ─── 3. WebSocket Group (token via query string) ───────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		authenticate,
		middleware.RequireRole(authService, model.RoleStudent),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/student/sessions/:id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. College Group ──────────────────────────────────────────────
	collegeAPI := router.Group("/api/v1/college")
	collegeAPI.Use(authenticate, middleware.RequireRole(authService, model.RoleCollege))
	{
		collegeAPI.GET("/tests", handlers.College.ListTests)
		collegeAPI.POST("/tests", handlers.College.CreateTest)
		collegeAPI.GET("/tests/:test_id/results", handlers.College.GetTestResults)
	}

	// ─── 5. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(authenticate, middleware.RequireRole(authService, model.RoleAdmin))
	{
		adminAPI.GET("/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/questions", handlers.Question.CreateQuestion)
		adminAPI.POST("/questions/bulk", handlers.Question.BulkCreateQuestions)
		adminAPI.PUT("/questions/:id", handlers.Question.UpdateQuestion)
		adminAPI.DELETE("/questions/:id", handlers.Question.DeactivateQuestion)
	}

	return router
}
