package models

import "time"

// ActivityLog is an append-only audit entry for a successful mutation. Rows
// are never updated or deleted; there is intentionally no DeletedAt column.
type ActivityLog struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	UserID     uint64    `gorm:"not null;index" json:"user_id"`
	ProjectID  uint64    `gorm:"not null;index" json:"project_id"`
	EntityType string    `gorm:"type:varchar(20);not null" json:"entity_type"`
	EntityID   uint64    `gorm:"not null" json:"entity_id"`
	Action     string    `gorm:"type:varchar(50);not null" json:"action"`
	Metadata   string    `gorm:"type:text" json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
