package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildcontrol/backend/internal/models"
	"github.com/buildcontrol/backend/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectInput carries the fields of a new project.
type ProjectInput struct {
	Name      string
	Status    models.ProjectStatus
	Type      models.ProjectType
	StartDate *time.Time
	EndDate   *time.Time
	Address   *string
}

// ProjectPatch is a partial update; nil fields are left unchanged. The
// Clear flags reset an optional column to null and win over a value.
type ProjectPatch struct {
	Name      *string
	Status    *models.ProjectStatus
	Type      *models.ProjectType
	StartDate *time.Time
	EndDate   *time.Time
	Address   *string

	ClearStartDate bool
	ClearEndDate   bool
	ClearAddress   bool
}

func (p ProjectPatch) fields() repository.Fields {
	fields := repository.Fields{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.Type != nil {
		fields["type"] = *p.Type
	}
	if p.StartDate != nil {
		fields["start_date"] = *p.StartDate
	}
	if p.EndDate != nil {
		fields["end_date"] = *p.EndDate
	}
	if p.Address != nil {
		fields["address"] = *p.Address
	}
	if p.ClearStartDate {
		fields["start_date"] = nil
	}
	if p.ClearEndDate {
		fields["end_date"] = nil
	}
	if p.ClearAddress {
		fields["address"] = nil
	}
	return fields
}

// ProjectService manages projects on behalf of their owner. Another user's
// project is reported as ErrForbidden, a missing one as ErrProjectNotFound.
type ProjectService struct {
	projects *repository.ProjectRepository
	log      *zap.Logger
}

func NewProjectService(db *gorm.DB, log *zap.Logger) *ProjectService {
	return &ProjectService{
		projects: repository.NewProjectRepository(db, repository.WithLogger(log)),
		log:      log,
	}
}

// Create stores a project owned by ownerID.
func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, in ProjectInput) (*models.Project, error) {
	if err := checkDateRange(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	project, err := s.projects.Create(ctx, &models.Project{
		Name:      in.Name,
		Status:    in.Status,
		Type:      in.Type,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Address:   in.Address,
		UserID:    ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// Get returns the owner's project. rawID is the identifier as received.
func (s *ProjectService) Get(ctx context.Context, ownerID uuid.UUID, rawID string) (*models.Project, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrProjectNotFound
	}

	project, err := s.projects.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if project.UserID != ownerID {
		return nil, ErrForbidden
	}
	return project, nil
}

// List returns one page of the owner's projects, newest first, and the
// owner's total.
func (s *ProjectService) List(ctx context.Context, ownerID uuid.UUID, page repository.Page) ([]models.Project, int64, error) {
	projects, total, err := s.projects.ListByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, total, nil
}

// Update applies a partial update to the owner's project.
func (s *ProjectService) Update(ctx context.Context, ownerID uuid.UUID, rawID string, patch ProjectPatch) (*models.Project, error) {
	project, err := s.Get(ctx, ownerID, rawID)
	if err != nil {
		return nil, err
	}

	start, end := project.StartDate, project.EndDate
	if patch.StartDate != nil {
		start = patch.StartDate
	}
	if patch.EndDate != nil {
		end = patch.EndDate
	}
	if patch.ClearStartDate {
		start = nil
	}
	if patch.ClearEndDate {
		end = nil
	}
	if err := checkDateRange(start, end); err != nil {
		return nil, err
	}

	updated, err := s.projects.Update(ctx, project.ID, patch.fields())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return updated, nil
}

// Delete soft-deletes the owner's project.
func (s *ProjectService) Delete(ctx context.Context, ownerID uuid.UUID, rawID string) error {
	project, err := s.Get(ctx, ownerID, rawID)
	if err != nil {
		return err
	}

	if _, err := s.projects.SoftDelete(ctx, project.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}
	s.log.Info("project deleted", zap.Stringer("project_id", project.ID), zap.Stringer("user_id", ownerID))
	return nil
}

func checkDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrInvalidDateRange
	}
	return nil
}
