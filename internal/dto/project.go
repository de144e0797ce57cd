package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uint64    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberDTO represents a project membership in API responses
type MemberDTO struct {
	ProjectID uint64      `json:"project_id"`
	UserID    uint64      `json:"user_id"`
	Role      authz.Role  `json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`
	User      *UserDTO    `json:"user,omitempty"`
	Project   *ProjectDTO `json:"project,omitempty"`
}

// ActivityDTO represents an activity log entry in API responses
type ActivityDTO struct {
	ID         uint64                 `json:"id"`
	UserID     uint64                 `json:"user_id"`
	EntityType string                 `json:"entity_type"`
	EntityID   uint64                 `json:"entity_id"`
	Action     string                 `json:"action"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	User       *UserDTO               `json:"user,omitempty"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:        project.ID,
		Name:      project.Name,
		OwnerID:   project.OwnerID,
		CreatedAt: project.CreatedAt,
	}
}

// ToMemberDTO converts a ProjectMember model to MemberDTO
func ToMemberDTO(member models.ProjectMember) MemberDTO {
	dto := MemberDTO{
		ProjectID: member.ProjectID,
		UserID:    member.UserID,
		Role:      member.Role,
		JoinedAt:  member.JoinedAt,
	}

	// Include user if preloaded
	if member.User.ID != 0 {
		user := ToUserDTO(member.User)
		dto.User = &user
	}

	// Include project if preloaded
	if member.Project.ID != 0 {
		project := ToProjectDTO(member.Project)
		dto.Project = &project
	}

	return dto
}

// ToMemberDTOs converts a slice of memberships
func ToMemberDTOs(members []models.ProjectMember) []MemberDTO {
	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = ToMemberDTO(m)
	}
	return dtos
}

// ToActivityDTO converts an ActivityLog model to ActivityDTO
func ToActivityDTO(entry models.ActivityLog) ActivityDTO {
	dto := ActivityDTO{
		ID:         entry.ID,
		UserID:     entry.UserID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		CreatedAt:  entry.CreatedAt,
	}

	if entry.Metadata != "" {
		var meta map[string]interface{}
		if err := json.Unmarshal([]byte(entry.Metadata), &meta); err == nil {
			dto.Metadata = meta
		}
	}

	if entry.User.ID != 0 {
		user := ToUserDTO(entry.User)
		dto.User = &user
	}

	return dto
}

// ToActivityDTOs converts a slice of activity entries
func ToActivityDTOs(entries []models.ActivityLog) []ActivityDTO {
	dtos := make([]ActivityDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ToActivityDTO(e)
	}
	return dtos
}
