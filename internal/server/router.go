package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/brightpath-hq/brightpath-backend/internal/handlers"
	"github.com/brightpath-hq/brightpath-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName        string
	AllowOrigins       []string
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	ProgressHandler    *handlers.ProgressHandler
	QuizHandler        *handlers.QuizHandler
	TrackHandler       *handlers.TrackHandler
	CertificateHandler *handlers.CertificateHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	api.POST("/auth/register", cfg.AuthHandler.Register)
	api.POST("/auth/login", cfg.AuthHandler.Login)
	api.GET("/certificates/lookup", cfg.CertificateHandler.LookupByEmail)

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)

	protected.POST("/modules/:id/start", cfg.ProgressHandler.StartModule)
	protected.POST("/modules/:id/complete", cfg.ProgressHandler.CompleteModule)
	protected.POST("/modules/:id/time", cfg.ProgressHandler.LogTime)
	protected.GET("/modules/:id/progress", cfg.ProgressHandler.GetModuleProgress)
	protected.GET("/progress", cfg.ProgressHandler.ListUserProgress)
	protected.GET("/progress/summary", cfg.TrackHandler.GetProgressSummary)

	protected.POST("/modules/:id/quiz/submit", cfg.QuizHandler.SubmitQuiz)
	protected.GET("/modules/:id/quiz/attempts", cfg.QuizHandler.ListAttempts)
	protected.GET("/modules/:id/quiz/stats", cfg.QuizHandler.GetStats)

	protected.GET("/tracks/:id/progress", cfg.TrackHandler.GetTrackProgress)
	protected.GET("/tracks/:id/time", cfg.TrackHandler.GetTimeSpent)

	protected.GET("/certificates", cfg.CertificateHandler.ListForUser)
	protected.GET("/certificates/:id/artifact", cfg.CertificateHandler.DownloadArtifact)

	// Admin
	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	admin.POST("/users/:userId/modules/:moduleId/override-complete", cfg.ProgressHandler.AdminOverrideComplete)
	admin.POST("/users/:userId/modules/:moduleId/reset", cfg.ProgressHandler.AdminReset)
	admin.POST("/certificates/issue", cfg.CertificateHandler.IssueForEmail)
	admin.POST("/certificates/:id/rerender", cfg.CertificateHandler.Rerender)

	return router
}
