package handlers

import (
	"net/http"
	"time"

	"github.com/buildcontrol/backend/internal/middleware"
	"github.com/buildcontrol/backend/internal/models"
	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/buildcontrol/backend/internal/services"
	"github.com/buildcontrol/backend/pkg/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *services.UserService
	otpLength   int
	log         *zap.Logger
}

func NewUserHandler(userService *services.UserService, otpLength int, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		otpLength:   otpLength,
		log:         log,
	}
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

func newLoginResponse(res *services.AuthResult) loginResponse {
	return loginResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresAt:   res.ExpiresAt,
		User:        res.User,
	}
}

// Register handles user registration
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		MobileNumber   string  `json:"mobile_number" binding:"required,max=15"`
		Email          string  `json:"email" binding:"required,email,max=255"`
		Password       string  `json:"password" binding:"required,min=6,max=255"`
		CompanyName    string  `json:"company_name" binding:"max=255"`
		State          string  `json:"state" binding:"max=100"`
		CompanyAddress *string `json:"company_address" binding:"omitempty,max=500"`
		GSTIN          *string `json:"gstin" binding:"omitempty,max=15"`
		PAN            *string `json:"pan" binding:"omitempty,max=10"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if !validation.ValidateMobile(req.MobileNumber) {
		badRequest(c, "Invalid mobile number format")
		return
	}
	if !validation.ValidateEmail(req.Email) {
		badRequest(c, "Invalid email format")
		return
	}
	if req.GSTIN != nil && !validation.ValidateGSTIN(*req.GSTIN) {
		badRequest(c, "Invalid GSTIN format")
		return
	}
	if req.PAN != nil && !validation.ValidatePAN(*req.PAN) {
		badRequest(c, "Invalid PAN format")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), services.RegisterInput{
		MobileNumber:   req.MobileNumber,
		Email:          req.Email,
		Password:       req.Password,
		CompanyName:    validation.SanitizeString(req.CompanyName),
		State:          validation.SanitizeString(req.State),
		CompanyAddress: sanitizeOptional(req.CompanyAddress),
		GSTIN:          req.GSTIN,
		PAN:            req.PAN,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Created(c, user)
}

// Login handles email and password login
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, newLoginResponse(res))
}

// SendOTP sends a login code to a registered mobile number
func (h *UserHandler) SendOTP(c *gin.Context) {
	var req struct {
		MobileNumber string `json:"mobile_number" binding:"required,min=10,max=15"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validation.ValidateMobile(req.MobileNumber) {
		badRequest(c, "Invalid mobile number format")
		return
	}

	if err := h.userService.SendOTP(c.Request.Context(), req.MobileNumber); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, gin.H{
		"message":       "OTP sent successfully",
		"mobile_number": req.MobileNumber,
	})
}

// VerifyOTP logs in with a code sent by SendOTP
func (h *UserHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		MobileNumber string `json:"mobile_number" binding:"required,min=10,max=15"`
		OTP          string `json:"otp" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validation.ValidateOTP(req.OTP, h.otpLength) {
		badRequest(c, "Invalid OTP format")
		return
	}

	res, err := h.userService.VerifyOTPAndLogin(c.Request.Context(), req.MobileNumber, req.OTP)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, newLoginResponse(res))
}

// Me returns the authenticated user
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	response.OK(c, user)
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(middleware.UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := validation.SanitizeString(*s)
	return &v
}
