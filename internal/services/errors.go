package services

import "errors"

var (
	// Users
	ErrMobileTaken        = errors.New("mobile number already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// OTP
	ErrInvalidOTP     = errors.New("invalid or expired OTP")
	ErrOTPRateLimited = errors.New("too many OTP requests, try again later")
	ErrOTPDelivery    = errors.New("failed to deliver OTP")

	// Projects
	ErrProjectNotFound  = errors.New("project not found")
	ErrForbidden        = errors.New("not allowed to access this project")
	ErrInvalidDateRange = errors.New("end_date must not be before start_date")
)
