package repository

import (
	"context"

	"github.com/buildcontrol/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	*Repository[models.Project]
}

func NewProjectRepository(db *gorm.DB, opts ...Option) *ProjectRepository {
	return &ProjectRepository{New[models.Project](db, opts...)}
}

// ListByOwner returns one page of the owner's live projects, newest first,
// along with the owner's total.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, page Page) ([]models.Project, int64, error) {
	total, err := r.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	projects, err := r.GetByFilters(ctx, Query{
		Page:    page,
		Filters: Filters{"user_id": ownerID},
		Order:   Order{Field: "created_at", Desc: true},
	})
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// CountByOwner returns the number of the owner's live projects.
func (r *ProjectRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return r.CountByFilters(ctx, Filters{"user_id": ownerID}, false)
}

// GetByName returns the owner's live project with this exact name.
func (r *ProjectRepository) GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*models.Project, error) {
	projects, err := r.GetByFilters(ctx, Query{
		Page:    Page{Limit: 1},
		Filters: Filters{"user_id": ownerID, "name": name},
	})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, ErrNotFound
	}
	return &projects[0], nil
}
