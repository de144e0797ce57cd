package models

import (
	"time"

	"gorm.io/gorm"
)

// Deliverable groups tickets within a project, e.g. a milestone. DisplayOrder
// is a per-project position maintained by the repository.
type Deliverable struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	ProjectID    uint64         `gorm:"not null;index" json:"project_id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	DisplayOrder int            `gorm:"not null;default:0" json:"display_order"`
	CreatorID    uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Project Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Tickets []Ticket `gorm:"foreignKey:DeliverableID" json:"tickets,omitempty"`
}
