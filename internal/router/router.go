package router

import (
	"net/http"
	"time"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/handler"
	"github.com/examina/examina-backend/internal/middleware"
	"github.com/examina/examina-backend/internal/response"
	"github.com/examina/examina-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		exam := studentAPI.Group("/exams/:exam_id")

		exam.POST("/session", handlers.Session.Begin)
		exam.GET("/session", handlers.Session.State)
		exam.POST("/session/password", handlers.Session.SubmitPassword)

		exam.POST("/session/answer", handlers.Session.SelectAnswer)
		exam.POST("/session/mark", handlers.Session.ToggleMark)

		exam.POST("/session/next", handlers.Session.Next)
		exam.POST("/session/prev", handlers.Session.Prev)
		exam.POST("/session/jump", handlers.Session.Jump)

		exam.POST("/session/break", handlers.Session.TakeBreak)
		exam.POST("/session/resume", handlers.Session.Resume)

		exam.POST("/session/submit", handlers.Session.RequestSubmit)
		exam.POST("/session/submit/confirm", handlers.Session.ConfirmSubmit)
		exam.POST("/session/submit/cancel", handlers.Session.CancelSubmit)
		exam.POST("/session/failure/ack", handlers.Session.AcknowledgeFailure)

		exam.POST("/session/events/back-nav", handlers.Session.ReportBackNavigation)
		exam.POST("/session/events/back-nav/confirm", handlers.Session.ConfirmAbandonment)
		exam.POST("/session/events/unload", handlers.Session.ReportUnload)

		exam.GET("/result", handlers.Session.Result)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.SessionStream)
	}

	return router
}
