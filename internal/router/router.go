package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/brightsteps/brightsteps-backend/internal/config"
	"github.com/brightsteps/brightsteps-backend/internal/handler"
	"github.com/brightsteps/brightsteps-backend/internal/middleware"
	"github.com/brightsteps/brightsteps-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID", "X-Student-ID", "X-Guest-ID", "X-Class-ID", "X-School-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Session Group (Identity Required) ──────────────────────────
	// Identity headers are set by the upstream gateway after authentication.
	sessionAPI := router.Group("/api/v1/exams/:exam_id/session")
	sessionAPI.Use(middleware.RequireIdentity())
	{
		sessionAPI.POST("", handlers.Session.LoadSession)
		sessionAPI.POST("/answers", handlers.Session.SubmitAnswer)
		sessionAPI.PUT("/position", handlers.Session.GoToQuestion)
		sessionAPI.POST("/complete", handlers.Session.CompleteExam)
		sessionAPI.POST("/abandon", handlers.Session.AbandonExam)
		sessionAPI.DELETE("", handlers.Session.ResetExam)
		sessionAPI.GET("/progress", handlers.Session.GetProgress)
	}

	// ─── 2. Reporting Group ────────────────────────────────────────────
	reportAPI := router.Group("/api/v1/exams/:exam_id")
	{
		reportAPI.GET("/sessions", handlers.Session.ListSessions)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/exams/:exam_id/progress", handlers.Monitor.ExamProgressStream)
	}

	return router
}
