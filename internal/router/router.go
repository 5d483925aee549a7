package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepora/prepora-backend/internal/config"
	"github.com/prepora/prepora-backend/internal/handler"
	"github.com/prepora/prepora-backend/internal/middleware"
	"github.com/prepora/prepora-backend/internal/response"
	"github.com/prepora/prepora-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Subject  *handler.SubjectHandler
	Exam     *handler.ExamHandler
	Session  *handler.SessionHandler
	Artifact *handler.ArtifactHandler
	Result   *handler.ResultHandler
	WS       *handler.WSHandler
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

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

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
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Authenticated API (JWT + active login) ─────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireJWT(authService),
		middleware.CheckActiveLogin(authService),
	)
	{
		// Catalog. Changes rarely; let clients cache briefly.
		api.GET("/subjects", middleware.CacheControl(300), handlers.Subject.List)
		api.GET("/exams", middleware.CacheControl(300), handlers.Exam.List)
		api.GET("/exams/:exam_id", middleware.CacheControl(300), handlers.Exam.Get)
		api.GET("/exams/:exam_id/paper", handlers.Exam.GetPaper)

		// Exam session (REST fallback; the WebSocket stream is primary).
		api.POST("/exams/:exam_id/session", handlers.Session.Start)
		api.GET("/exams/:exam_id/session", handlers.Session.Snapshot)
		api.PUT("/exams/:exam_id/session/answer", handlers.Session.Answer)
		api.PUT("/exams/:exam_id/session/flag", handlers.Session.Flag)
		api.PUT("/exams/:exam_id/session/position", handlers.Session.GoTo)
		api.POST("/exams/:exam_id/session/artifacts", handlers.Session.SaveArtifact)
		api.POST("/exams/:exam_id/session/submit", handlers.Session.Submit)

		// Study artifacts.
		api.GET("/artifacts", handlers.Artifact.List)
		api.POST("/artifacts", handlers.Artifact.Create)
		api.DELETE("/artifacts/:artifact_id", handlers.Artifact.Delete)

		// Results and aggregates.
		api.GET("/results", handlers.Result.List)
		api.GET("/results/stats", handlers.Result.Stats)
		api.GET("/results/:result_id", handlers.Result.Get)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.Stream)
	}

	return router
}
