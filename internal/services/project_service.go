package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/storage"
	"github.com/yukikurage/issue-tracker-api/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrProjectNameMissing = errors.New("project name is required")
	ErrMemberExists       = errors.New("user is already a member of the project")
	ErrMemberNotFound     = errors.New("member not found")
	ErrCannotTouchOwner   = errors.New("the project owner cannot be removed or demoted")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNoSuchUser         = errors.New("no user with that email")
)

// ProjectService handles project and membership business logic.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	store       storage.Store
	activity    *ActivityService
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, store storage.Store, activity *ActivityService) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		store:       store,
		activity:    activity,
	}
}

// Create creates a project with the creator as owner.
func (s *ProjectService) Create(name string, ownerID uint64) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrProjectNameMissing
	}

	project := &models.Project{
		Name:    name,
		OwnerID: ownerID,
	}
	member := &models.ProjectMember{
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.CreateWithOwner(project, member); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.activity.Record(ownerID, project.ID, "project", project.ID, "create", map[string]interface{}{
		"name": project.Name,
	})

	return project, nil
}

// ListForUser lists the memberships (with projects) of a user.
func (s *ProjectService) ListForUser(userID uint64) ([]models.ProjectMember, error) {
	memberships, err := s.projectRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return memberships, nil
}

// Members lists all members of a project.
func (s *ProjectService) Members(projectID uint64) ([]models.ProjectMember, error) {
	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// Update renames a project. Only the owner may do this.
func (s *ProjectService) Update(projectID, actorID uint64, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrProjectNameMissing
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(role, authz.ActionUpdateProject); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	project.Name = name
	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.activity.Record(actorID, projectID, "project", projectID, "update", map[string]interface{}{
		"name": name,
	})

	return project, nil
}

// Delete removes a project and everything it owns. The policy check runs
// here and again inside the repository transaction.
func (s *ProjectService) Delete(ctx context.Context, projectID, actorID uint64) error {
	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(role, authz.ActionDeleteProject); err != nil {
		return err
	}

	removedKeys, err := s.projectRepo.Delete(projectID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.sweepObjects(ctx, removedKeys)

	s.activity.Record(actorID, projectID, "project", projectID, "delete", nil)

	return nil
}

// AddMember adds a user (looked up by email) to a project with a role.
func (s *ProjectService) AddMember(projectID, actorID uint64, email string, role authz.Role) (*models.ProjectMember, error) {
	actorRole, err := s.memberRole(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actorRole, authz.ActionManageMembers); err != nil {
		return nil, err
	}

	// The owner role is assigned at project creation and never granted.
	if !role.Valid() || role == authz.RoleOwner {
		return nil, ErrInvalidRole
	}

	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchUser
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.projectRepo.FindMember(projectID, user.ID); err == nil {
		return nil, ErrMemberExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	s.activity.Record(actorID, projectID, "member", user.ID, "add", map[string]interface{}{
		"role": string(role),
	})

	return member, nil
}

// RemoveMember removes a user from a project. The owner cannot be removed.
func (s *ProjectService) RemoveMember(projectID, actorID, userID uint64) error {
	actorRole, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actorRole, authz.ActionManageMembers); err != nil {
		return err
	}

	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}
	if member.Role == authz.RoleOwner {
		return ErrCannotTouchOwner
	}

	if err := s.projectRepo.RemoveMember(projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.activity.Record(actorID, projectID, "member", userID, "remove", nil)

	return nil
}

// ChangeMemberRole changes an existing member's role. The owner's role is
// fixed, and ownership is never granted this way.
func (s *ProjectService) ChangeMemberRole(projectID, actorID, userID uint64, role authz.Role) error {
	actorRole, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actorRole, authz.ActionManageMembers); err != nil {
		return err
	}

	if !role.Valid() || role == authz.RoleOwner {
		return ErrInvalidRole
	}

	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}
	if member.Role == authz.RoleOwner {
		return ErrCannotTouchOwner
	}

	if err := s.projectRepo.UpdateMemberRole(projectID, userID, role); err != nil {
		return fmt.Errorf("failed to change role: %w", err)
	}

	s.activity.Record(actorID, projectID, "member", userID, "change_role", map[string]interface{}{
		"role": string(role),
	})

	return nil
}

// memberRole re-derives the actor's role for this request.
func (s *ProjectService) memberRole(projectID, userID uint64) (authz.Role, error) {
	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authz.ErrDenied
		}
		return "", fmt.Errorf("failed to verify membership: %w", err)
	}
	return authz.Normalize(string(member.Role)), nil
}

// sweepObjects removes orphaned attachment blobs after a cascade delete
// committed. Best effort; a leftover object is storage garbage, not a
// correctness problem.
func (s *ProjectService) sweepObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Remove(ctx, key); err != nil {
			logger.Warn().Err(err).Str("object_key", key).Msg("failed to remove attachment object")
		}
	}
}
