package handlers

import (
	"errors"
	"net/http"

	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/buildcontrol/backend/internal/repository"
	"github.com/buildcontrol/backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal server error"

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrMobileTaken, http.StatusBadRequest},
	{services.ErrEmailTaken, http.StatusBadRequest},
	{services.ErrInvalidDateRange, http.StatusBadRequest},
	{repository.ErrUnknownField, http.StatusBadRequest},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrInvalidOTP, http.StatusUnauthorized},
	{services.ErrInvalidToken, http.StatusUnauthorized},
	{services.ErrAccountInactive, http.StatusForbidden},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrProjectNotFound, http.StatusNotFound},
	{repository.ErrNotFound, http.StatusNotFound},
	{services.ErrOTPRateLimited, http.StatusTooManyRequests},
	{services.ErrOTPDelivery, http.StatusBadGateway},
}

// statusFor maps a service error to its HTTP status and client message.
// Unrecognised errors are reported as a generic 500.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, internalErrorMessage
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		_ = c.Error(err)
	}
	response.Error(c, status, message)
}

func badRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, message)
}
