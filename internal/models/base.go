package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model carries the identity and timestamp columns shared by every table.
type Model struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SoftDelete marks a table as soft-deletable. A nil DeletedAt means the row is live.
type SoftDelete struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the row carries a deletion marker.
func (s SoftDelete) IsDeleted() bool {
	return s.DeletedAt.Valid
}

// SoftDeletable is implemented by every entity embedding SoftDelete.
type SoftDeletable interface {
	IsDeleted() bool
}
