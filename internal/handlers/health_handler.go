package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db      *gorm.DB
	redis   *redis.Client
	version string
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, version: version}
}

// Health reports liveness plus the state of the database and Redis.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	database := "up"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		database = "down"
		status = "degraded"
	}

	cache := "disabled"
	if h.redis != nil {
		cache = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			cache = "down"
		}
	}

	code, message := http.StatusOK, ""
	if status != "ok" {
		code, message = http.StatusServiceUnavailable, "Service degraded"
	}
	c.JSON(code, response.New(status == "ok", message, gin.H{
		"status":   status,
		"version":  h.version,
		"database": database,
		"redis":    cache,
	}))
}
