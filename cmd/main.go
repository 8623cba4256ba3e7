package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brightpath-hq/brightpath-backend/internal/db"
	"github.com/brightpath-hq/brightpath-backend/internal/handlers"
	"github.com/brightpath-hq/brightpath-backend/internal/logger"
	"github.com/brightpath-hq/brightpath-backend/internal/middleware"
	"github.com/brightpath-hq/brightpath-backend/internal/observability"
	"github.com/brightpath-hq/brightpath-backend/internal/repos"
	"github.com/brightpath-hq/brightpath-backend/internal/server"
	"github.com/brightpath-hq/brightpath-backend/internal/services"
	"github.com/brightpath-hq/brightpath-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	certificatesDir := utils.GetEnv("CERTIFICATES_DIR", "./certificates", log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	port := utils.GetEnv("PORT", "8080", log)

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "brightpath-backend",
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	trackRepo := repos.NewTrackRepo(thePG, log)
	moduleRepo := repos.NewModuleRepo(thePG, log)
	moduleContentRepo := repos.NewModuleContentRepo(thePG, log)
	progressRepo := repos.NewProgressRepo(thePG, log)
	timeLogRepo := repos.NewTimeLogRepo(thePG, log)
	quizAttemptRepo := repos.NewQuizAttemptRepo(thePG, log)
	certificateRepo := repos.NewCertificateRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	quizService := services.NewQuizService(thePG, log, quizAttemptRepo, moduleContentRepo)
	trackProgressService := services.NewTrackProgressService(thePG, log, trackRepo, moduleRepo, progressRepo, quizService)

	var renderer services.CertificateArtifactRenderer
	if r, rErr := services.NewCertificateRenderer(); rErr != nil {
		log.Warn("Certificate renderer unavailable, artifacts disabled", "error", rErr)
	} else {
		renderer = r
	}
	certificateService := services.NewCertificateService(thePG, log, certificateRepo, moduleRepo, trackRepo,
		userRepo, trackProgressService, renderer, certificatesDir)
	progressService := services.NewProgressService(thePG, log, progressRepo, moduleRepo, timeLogRepo,
		taskRepo, certificateService, quizService)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	progressHandler := handlers.NewProgressHandler(progressService)
	quizHandler := handlers.NewQuizHandler(quizService)
	trackHandler := handlers.NewTrackHandler(trackProgressService)
	certificateHandler := handlers.NewCertificateHandler(certificateService)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ServiceName:        "brightpath-backend",
		AllowOrigins:       allowOrigins,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		ProgressHandler:    progressHandler,
		QuizHandler:        quizHandler,
		TrackHandler:       trackHandler,
		CertificateHandler: certificateHandler,
	})

	log.Info("Starting server...", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
