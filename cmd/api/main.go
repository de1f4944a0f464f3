package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/buildcontrol/backend/internal/models"
	"github.com/buildcontrol/backend/internal/pkg/logger"
	"github.com/buildcontrol/backend/internal/server"
	"github.com/buildcontrol/backend/internal/services"
	jwtpkg "github.com/buildcontrol/backend/pkg/jwt"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// Initialize database
	db, err := models.InitDB(cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize Redis (nil when disabled or unreachable)
	redisClient := models.InitRedis(cfg, zl)
	if redisClient != nil {
		defer redisClient.Close()
	}

	signer, err := jwtpkg.NewSigner(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTAccessTokenDuration)
	if err != nil {
		zl.Fatal("failed to initialize token signer", zap.Error(err))
	}

	// Initialize services
	smsService := services.NewSMSService(cfg, zl)
	otpService := services.NewOTPService(db, cfg, zl)
	otpThrottle := services.NewOTPThrottle(redisClient, cfg.OTPSendsPerHour, zl)
	userService := services.NewUserService(db, cfg, otpService, smsService, otpThrottle, signer, zl)
	projectService := services.NewProjectService(db, zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic cleanup of expired OTPs
	if cfg.OTPCleanupInterval > 0 {
		go otpService.RunCleanup(ctx, cfg.OTPCleanupInterval)
	}

	router := server.NewRouter(server.Deps{
		Config:         cfg,
		DB:             db,
		Redis:          redisClient,
		Log:            zl,
		UserService:    userService,
		ProjectService: projectService,
		OTPService:     otpService,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	stop()
	zl.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zl.Info("server exited")
}
