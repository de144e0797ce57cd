package models

import (
	"time"

	"gorm.io/gorm"
)

// Ticket is a single unit of work inside a deliverable. DisplayOrder is
// scoped per (deliverable, priority) group.
type Ticket struct {
	ID            uint64         `gorm:"primarykey" json:"id"`
	DeliverableID uint64         `gorm:"not null;index" json:"deliverable_id"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	URL           string         `gorm:"type:varchar(2048)" json:"url"`
	StatusID      int            `gorm:"not null;default:1" json:"status_id"`
	PriorityID    int            `gorm:"not null;default:3" json:"priority_id"`
	AssignedTo    *uint64        `json:"assigned_to"`
	CreatorID     uint64         `gorm:"not null;index" json:"creator_id"`
	DisplayOrder  int            `gorm:"not null;default:0" json:"display_order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Deliverable Deliverable `gorm:"foreignKey:DeliverableID" json:"deliverable,omitempty"`
	Creator     User        `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee    *User       `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Comments    []Comment   `gorm:"foreignKey:TicketID" json:"comments,omitempty"`
}
