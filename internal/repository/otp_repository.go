package repository

import (
	"context"
	"errors"
	"time"

	"github.com/buildcontrol/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OTPRepository struct {
	*Repository[models.OTP]
}

func NewOTPRepository(db *gorm.DB, opts ...Option) *OTPRepository {
	return &OTPRepository{New[models.OTP](db, opts...)}
}

func (r *OTPRepository) WithTx(tx *gorm.DB) *OTPRepository {
	return &OTPRepository{r.Repository.WithTx(tx)}
}

// LatestLive returns the newest live, unverified code for the number,
// whether or not it has expired.
func (r *OTPRepository) LatestLive(ctx context.Context, mobile string) (*models.OTP, error) {
	return r.latestLive(r.db.WithContext(ctx), mobile)
}

// LatestLiveForUpdate is LatestLive holding a row lock until the enclosing
// transaction ends.
func (r *OTPRepository) LatestLiveForUpdate(ctx context.Context, mobile string) (*models.OTP, error) {
	return r.latestLive(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), mobile)
}

func (r *OTPRepository) latestLive(db *gorm.DB, mobile string) (*models.OTP, error) {
	var otp models.OTP
	err := db.
		Where("mobile_number = ? AND is_verified = ?", mobile, false).
		Order("created_at DESC").
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// LatestByMobile returns the newest code for the number regardless of status.
func (r *OTPRepository) LatestByMobile(ctx context.Context, mobile string, includeDeleted bool) (*models.OTP, error) {
	otps, err := r.GetByFilters(ctx, Query{
		Page:           Page{Limit: 1},
		IncludeDeleted: includeDeleted,
		Filters:        Filters{"mobile_number": mobile},
		Order:          Order{Field: "created_at", Desc: true},
	})
	if err != nil {
		return nil, err
	}
	if len(otps) == 0 {
		return nil, ErrNotFound
	}
	return &otps[0], nil
}

// SpendAttempt counts one attempt against a live, unverified code and
// applies fields in the same statement. It reports false when the code is
// gone, already verified or has no attempts left.
func (r *OTPRepository) SpendAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, fields Fields) (bool, error) {
	updates := map[string]any{"attempts": gorm.Expr("attempts + ?", 1)}
	for k, v := range fields {
		if err := r.checkColumn(k); err != nil {
			return false, err
		}
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.OTP{}).
		Where("id = ? AND is_verified = ? AND attempts < ?", id, false, maxAttempts).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// InvalidateLive soft-deletes every live code for the number.
func (r *OTPRepository) InvalidateLive(ctx context.Context, mobile string) (int64, error) {
	res := r.db.WithContext(ctx).Where("mobile_number = ?", mobile).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}

// SoftDeleteExpired soft-deletes every live, unverified code that expired at
// or before now.
func (r *OTPRepository) SoftDeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ? AND is_verified = ?", now, false).
		Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}
