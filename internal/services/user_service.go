package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/buildcontrol/backend/internal/models"
	"github.com/buildcontrol/backend/internal/repository"
	"github.com/buildcontrol/backend/pkg/crypto"
	jwtpkg "github.com/buildcontrol/backend/pkg/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	MobileNumber   string
	Email          string
	Password       string
	CompanyName    string
	State          string
	CompanyAddress *string
	GSTIN          *string
	PAN            *string
}

// AuthResult is returned by every successful login.
type AuthResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        *models.User
}

type UserService struct {
	users      *repository.UserRepository
	otp        *OTPService
	sender     OTPSender
	throttle   *OTPThrottle
	tokens     *jwtpkg.Signer
	bcryptCost int
	log        *zap.Logger
}

func NewUserService(db *gorm.DB, cfg *config.Config, otp *OTPService, sender OTPSender, throttle *OTPThrottle, tokens *jwtpkg.Signer, log *zap.Logger) *UserService {
	return &UserService{
		users:      repository.NewUserRepository(db, repository.WithLogger(log)),
		otp:        otp,
		sender:     sender,
		throttle:   throttle,
		tokens:     tokens,
		bcryptCost: cfg.BcryptCost,
		log:        log,
	}
}

// Register creates a new account. Mobile number and email must both be
// unused, including by soft-deleted accounts.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.checkAvailable(ctx, in.MobileNumber, in.Email, false); err != nil {
		return nil, err
	}

	hashedPassword, err := crypto.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		MobileNumber:   in.MobileNumber,
		Email:          in.Email,
		Password:       hashedPassword,
		CompanyName:    in.CompanyName,
		State:          in.State,
		CompanyAddress: in.CompanyAddress,
		GSTIN:          in.GSTIN,
		PAN:            in.PAN,
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with another registration, or collided with a
		// soft-deleted account.
		if cerr := s.checkAvailable(ctx, in.MobileNumber, in.Email, true); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.Stringer("user_id", user.ID))
	return user, nil
}

func (s *UserService) checkAvailable(ctx context.Context, mobile, email string, includeDeleted bool) error {
	n, err := s.users.CountByFilters(ctx, repository.Filters{"mobile_number": mobile}, includeDeleted)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrMobileTaken
	}
	n, err = s.users.CountByFilters(ctx, repository.Filters{"email": email}, includeDeleted)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrEmailTaken
	}
	return nil
}

// Login authenticates by email and password.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !crypto.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	return s.issueToken(user)
}

// SendOTP issues a login code for a registered number and delivers it by
// SMS. A code that cannot be delivered is invalidated.
func (s *UserService) SendOTP(ctx context.Context, mobile string) error {
	user, err := s.users.GetByMobile(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrAccountInactive
	}

	if !s.throttle.Allow(ctx, mobile) {
		return ErrOTPRateLimited
	}

	otp, err := s.otp.Issue(ctx, mobile)
	if err != nil {
		return err
	}

	if err := s.sender.SendOTP(ctx, mobile, otp.Code); err != nil {
		s.log.Error("otp delivery failed", zap.String("mobile", mobile), zap.Error(err))
		if ierr := s.otp.Invalidate(ctx, mobile); ierr != nil {
			s.log.Error("failed to invalidate undelivered otp", zap.String("mobile", mobile), zap.Error(ierr))
		}
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}
	return nil
}

// VerifyOTPAndLogin logs in with a code sent by SendOTP. The first
// successful OTP login marks the account verified.
func (s *UserService) VerifyOTPAndLogin(ctx context.Context, mobile, code string) (*AuthResult, error) {
	if err := s.otp.Verify(ctx, mobile, code); err != nil {
		return nil, err
	}

	user, err := s.users.GetByMobile(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if !user.IsVerified {
		user, err = s.users.Update(ctx, user.ID, repository.Fields{"is_verified": true})
		if err != nil {
			return nil, fmt.Errorf("mark user verified: %w", err)
		}
	}

	return s.issueToken(user)
}

// Authenticate resolves a bearer token to its live, active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// GetUserByID retrieves a live user by ID
func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) issueToken(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID.String(), user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}
