package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/buildcontrol/backend/internal/models"
	"github.com/buildcontrol/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// storeAttempts bounds the retries when a concurrent issue for the same
// number wins the race for the live slot.
const storeAttempts = 3

// OTPService issues and verifies one-time passcodes. A number has at most
// one live code; every terminal transition soft-deletes it.
type OTPService struct {
	db          *gorm.DB
	otps        *repository.OTPRepository
	length      int
	expiry      time.Duration
	maxAttempts int
	log         *zap.Logger
	now         func() time.Time
}

func NewOTPService(db *gorm.DB, cfg *config.Config, log *zap.Logger) *OTPService {
	return &OTPService{
		db:          db,
		otps:        repository.NewOTPRepository(db, repository.WithLogger(log)),
		length:      cfg.OTPLength,
		expiry:      cfg.OTPExpiry,
		maxAttempts: cfg.OTPMaxAttempts,
		log:         log,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Generate returns a code of the configured length. Each digit is drawn
// independently from crypto/rand.
func (s *OTPService) Generate() (string, error) {
	ten := big.NewInt(10)
	digits := make([]byte, s.length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// Store replaces any live code for the number with code.
func (s *OTPService) Store(ctx context.Context, mobile, code string) (*models.OTP, error) {
	var (
		otp *models.OTP
		err error
	)
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.otps.WithTx(tx)
			if _, err := repo.InvalidateLive(ctx, mobile); err != nil {
				return err
			}
			created, err := repo.Create(ctx, &models.OTP{
				MobileNumber: mobile,
				Code:         code,
				ExpiresAt:    s.now().Add(s.expiry),
			})
			if err != nil {
				return err
			}
			otp = created
			return nil
		})
		if err == nil {
			return otp, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.log.Debug("otp store lost race, retrying", zap.String("mobile", mobile), zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("store otp: %w", err)
}

// Issue generates and stores a fresh code for the number.
func (s *OTPService) Issue(ctx context.Context, mobile string) (*models.OTP, error) {
	code, err := s.Generate()
	if err != nil {
		return nil, err
	}
	return s.Store(ctx, mobile, code)
}

// Verify checks code against the live code for the number. Every failure
// is ErrInvalidOTP; expired and exhausted codes are consumed, a wrong code
// only spends an attempt. The row is locked for the duration of the check
// and the attempt is only counted while the limit has not been reached, so
// parallel guesses cannot exceed it.
func (s *OTPService) Verify(ctx context.Context, mobile, code string) error {
	var outcome error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.otps.WithTx(tx)

		otp, err := repo.LatestLiveForUpdate(ctx, mobile)
		if errors.Is(err, repository.ErrNotFound) {
			outcome = ErrInvalidOTP
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if otp.Expired(now) || otp.Attempts >= s.maxAttempts {
			outcome = ErrInvalidOTP
			return consume(ctx, repo, otp)
		}

		matched := subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) == 1
		var fields repository.Fields
		if matched {
			fields = repository.Fields{"is_verified": true, "verified_at": now}
		}
		spent, err := repo.SpendAttempt(ctx, otp.ID, s.maxAttempts, fields)
		if err != nil {
			return err
		}
		if !spent {
			// Consumed or exhausted by a concurrent verification.
			outcome = ErrInvalidOTP
			return consume(ctx, repo, otp)
		}
		if !matched {
			outcome = ErrInvalidOTP
			return nil
		}
		return consume(ctx, repo, otp)
	})
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	return outcome
}

// consume soft-deletes otp. A row that is already gone counts as consumed.
func consume(ctx context.Context, repo *repository.OTPRepository, otp *models.OTP) error {
	if _, err := repo.SoftDelete(ctx, otp.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// Peek returns the live code for the number without spending an attempt.
// An expired code is consumed and reported as ErrInvalidOTP.
func (s *OTPService) Peek(ctx context.Context, mobile string) (*models.OTP, error) {
	otp, err := s.otps.LatestLive(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidOTP
	}
	if err != nil {
		return nil, fmt.Errorf("peek otp: %w", err)
	}
	if otp.Expired(s.now()) {
		if _, err := s.otps.SoftDelete(ctx, otp.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("peek otp: %w", err)
		}
		return nil, ErrInvalidOTP
	}
	return otp, nil
}

// Invalidate consumes any live code for the number.
func (s *OTPService) Invalidate(ctx context.Context, mobile string) error {
	if _, err := s.otps.InvalidateLive(ctx, mobile); err != nil {
		return fmt.Errorf("invalidate otp: %w", err)
	}
	return nil
}

// PurgeExpired consumes every expired, unverified live code and returns how
// many were removed.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.otps.SoftDeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired otps: %w", err)
	}
	return n, nil
}

// RunCleanup purges expired codes every interval until ctx is cancelled.
func (s *OTPService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.log.Error("otp cleanup failed", zap.Error(err))
			} else if n > 0 {
				s.log.Info("otp cleanup", zap.Int64("purged", n))
			}
		}
	}
}
