// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/buildcontrol/backend/internal/handlers"
	"github.com/buildcontrol/backend/internal/middleware"
	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/buildcontrol/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators the routes are built from.
type Deps struct {
	Config         *config.Config
	DB             *gorm.DB
	Redis          *redis.Client
	Log            *zap.Logger
	UserService    *services.UserService
	ProjectService *services.ProjectService
	OTPService     *services.OTPService
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(d.Log))
	router.Use(middleware.RequestLogger(d.Log))
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(d.Redis, cfg, d.Log))

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Not found")
	})

	healthHandler := handlers.NewHealthHandler(d.DB, d.Redis, cfg.AppVersion)
	userHandler := handlers.NewUserHandler(d.UserService, cfg.OTPLength, d.Log)
	projectHandler := handlers.NewProjectHandler(d.ProjectService, d.Log)
	auth := middleware.Auth(d.UserService, d.Log)

	// Health check outside API group (no /api/v1 prefix)
	router.GET("/health", healthHandler.Health)

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.POST("/send-otp", userHandler.SendOTP)
			users.POST("/verify-otp", userHandler.VerifyOTP)
			users.GET("/me", auth, userHandler.Me)
		}

		projects := api.Group("/projects")
		projects.Use(auth)
		{
			projects.POST("", projectHandler.Create)
			projects.GET("", projectHandler.List)
			projects.GET("/:id", projectHandler.Get)
			projects.PATCH("/:id", projectHandler.Update)
			projects.DELETE("/:id", projectHandler.Delete)
		}

		if cfg.Env == config.EnvDevelopment {
			debugHandler := handlers.NewDebugHandler(d.OTPService, d.Log)
			api.GET("/debug/otp/:mobile", debugHandler.PeekOTP)
		}
	}

	return router
}
