package models

import (
	"time"

	"gorm.io/gorm"
)

type Comment struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	TicketID  uint64         `gorm:"not null;index" json:"ticket_id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	URL       string         `gorm:"type:varchar(2048)" json:"url"`
	CreatorID uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Ticket  Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
	Creator User   `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}
