package repository

import (
	"context"

	"github.com/buildcontrol/backend/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	*Repository[models.User]
}

func NewUserRepository(db *gorm.DB, opts ...Option) *UserRepository {
	return &UserRepository{New[models.User](db, opts...)}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{r.Repository.WithTx(tx)}
}

// GetByEmail returns the live user with exactly this email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.firstBy(ctx, Filters{"email": email})
}

// GetByMobile returns the live user with exactly this mobile number.
func (r *UserRepository) GetByMobile(ctx context.Context, mobile string) (*models.User, error) {
	return r.firstBy(ctx, Filters{"mobile_number": mobile})
}

func (r *UserRepository) firstBy(ctx context.Context, filters Filters) (*models.User, error) {
	users, err := r.GetByFilters(ctx, Query{Page: Page{Limit: 1}, Filters: filters})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}
