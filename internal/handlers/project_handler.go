package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/buildcontrol/backend/internal/models"
	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/buildcontrol/backend/internal/repository"
	"github.com/buildcontrol/backend/internal/services"
	"github.com/buildcontrol/backend/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type ProjectHandler struct {
	projectService *services.ProjectService
	log            *zap.Logger
}

func NewProjectHandler(projectService *services.ProjectService, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		log:            log,
	}
}

type projectResponse struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Status    models.ProjectStatus `json:"status"`
	Type      models.ProjectType   `json:"type"`
	StartDate *string              `json:"start_date"`
	EndDate   *string              `json:"end_date"`
	Address   *string              `json:"address"`
	UserID    uuid.UUID            `json:"user_id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func newProjectResponse(p *models.Project) projectResponse {
	return projectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Status:    p.Status,
		Type:      p.Type,
		StartDate: formatDate(p.StartDate),
		EndDate:   formatDate(p.EndDate),
		Address:   p.Address,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	// Already checked by the datetime binding.
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

// Create creates a project owned by the caller
func (h *ProjectHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Name      string  `json:"name" binding:"required,max=255"`
		Status    string  `json:"status" binding:"required,oneof=not_started ongoing completed on_hold"`
		Type      string  `json:"type" binding:"required,oneof=residential commercial others"`
		StartDate *string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
		EndDate   *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
		Address   *string `json:"address" binding:"omitempty,max=500"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), user.ID, services.ProjectInput{
		Name:      validation.SanitizeString(req.Name),
		Status:    models.ProjectStatus(req.Status),
		Type:      models.ProjectType(req.Type),
		StartDate: parseDate(req.StartDate),
		EndDate:   parseDate(req.EndDate),
		Address:   sanitizeOptional(req.Address),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Created(c, newProjectResponse(project))
}

// List returns the caller's projects, newest first
func (h *ProjectHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		badRequest(c, "skip must be a non-negative integer")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(repository.DefaultLimit)))
	if err != nil || limit < 1 || limit > repository.MaxLimit {
		badRequest(c, "limit must be between 1 and "+strconv.Itoa(repository.MaxLimit))
		return
	}

	projects, total, err := h.projectService.List(c.Request.Context(), user.ID, repository.Page{Offset: skip, Limit: limit})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, newProjectResponse(&projects[i]))
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	response.OK(c, out)
}

// Get returns one of the caller's projects
func (h *ProjectHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, newProjectResponse(project))
}

// Update applies a partial update to one of the caller's projects
func (h *ProjectHandler) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		Name      *string `json:"name" binding:"omitempty,min=1,max=255"`
		Status    *string `json:"status" binding:"omitempty,oneof=not_started ongoing completed on_hold"`
		Type      *string `json:"type" binding:"omitempty,oneof=residential commercial others"`
		StartDate *string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
		EndDate   *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
		Address   *string `json:"address" binding:"omitempty,max=500"`
	}

	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		badRequest(c, err.Error())
		return
	}
	nulls := nullFields(c)

	patch := services.ProjectPatch{
		Name:           sanitizeOptional(req.Name),
		StartDate:      parseDate(req.StartDate),
		EndDate:        parseDate(req.EndDate),
		Address:        sanitizeOptional(req.Address),
		ClearStartDate: nulls["start_date"],
		ClearEndDate:   nulls["end_date"],
		ClearAddress:   nulls["address"],
	}
	if req.Status != nil {
		status := models.ProjectStatus(*req.Status)
		patch.Status = &status
	}
	if req.Type != nil {
		typ := models.ProjectType(*req.Type)
		patch.Type = &typ
	}

	project, err := h.projectService.Update(c.Request.Context(), user.ID, c.Param("id"), patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, newProjectResponse(project))
}

// Delete soft-deletes one of the caller's projects
func (h *ProjectHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.JSON(c, http.StatusOK, "Project deleted", nil)
}

// nullFields returns the top-level keys the request body sets to an
// explicit null. It relies on the body cached by ShouldBindBodyWith.
func nullFields(c *gin.Context) map[string]bool {
	body, ok := c.Get(gin.BodyBytesKey)
	if !ok {
		return nil
	}
	raw, _ := body.([]byte)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	nulls := make(map[string]bool, len(doc))
	for key, value := range doc {
		if string(value) == "null" {
			nulls[key] = true
		}
	}
	return nulls
}
