package handlers

import (
	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/buildcontrol/backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DebugHandler exposes internals for local development. It must only be
// routed when ENV=development.
type DebugHandler struct {
	otpService *services.OTPService
	log        *zap.Logger
}

func NewDebugHandler(otpService *services.OTPService, log *zap.Logger) *DebugHandler {
	return &DebugHandler{otpService: otpService, log: log}
}

// PeekOTP returns the live code for a number without spending an attempt
func (h *DebugHandler) PeekOTP(c *gin.Context) {
	mobile := c.Param("mobile")

	otp, err := h.otpService.Peek(c.Request.Context(), mobile)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, gin.H{
		"mobile_number": otp.MobileNumber,
		"otp":           otp.Code,
		"expires_at":    otp.ExpiresAt,
		"attempts":      otp.Attempts,
	})
}
