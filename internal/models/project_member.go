package models

import (
	"time"

	"github.com/yukikurage/issue-tracker-api/internal/authz"
)

// ProjectMember links a user to a project with a single role. The composite
// primary key guarantees at most one role per (project, user).
type ProjectMember struct {
	ProjectID uint64     `gorm:"primarykey" json:"project_id"`
	UserID    uint64     `gorm:"primarykey" json:"user_id"`
	Role      authz.Role `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time  `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
