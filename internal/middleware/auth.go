package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/buildcontrol/backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by Auth.
const (
	UserIDKey = "userID"
	UserKey   = "user"
)

// Auth requires a valid bearer token and stores the caller in the context.
func Auth(users *services.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := users.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		switch {
		case err == nil:
		case errors.Is(err, services.ErrAccountInactive):
			response.Error(c, http.StatusForbidden, err.Error())
			return
		case errors.Is(err, services.ErrInvalidToken):
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, http.StatusUnauthorized, err.Error())
			return
		default:
			log.Error("authentication failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		log.Debug("token validated", zap.Stringer("user_id", user.ID))
		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Next()
	}
}
