package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusNotStarted ProjectStatus = "not_started"
	ProjectStatusOngoing    ProjectStatus = "ongoing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusNotStarted, ProjectStatusOngoing, ProjectStatusCompleted, ProjectStatusOnHold:
		return true
	}
	return false
}

type ProjectType string

const (
	ProjectTypeResidential ProjectType = "residential"
	ProjectTypeCommercial  ProjectType = "commercial"
	ProjectTypeOthers      ProjectType = "others"
)

func (t ProjectType) Valid() bool {
	switch t {
	case ProjectTypeResidential, ProjectTypeCommercial, ProjectTypeOthers:
		return true
	}
	return false
}

type Project struct {
	Model
	SoftDelete

	Name      string        `gorm:"size:255;index;not null" json:"name"`
	Status    ProjectStatus `gorm:"size:20;index;not null" json:"status"`
	Type      ProjectType   `gorm:"size:20;index;not null" json:"type"`
	StartDate *time.Time    `gorm:"type:date" json:"start_date"`
	EndDate   *time.Time    `gorm:"type:date" json:"end_date"`
	Address   *string       `gorm:"size:500" json:"address"`
	UserID    uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
}
