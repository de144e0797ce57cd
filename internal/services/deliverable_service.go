package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/storage"
	"github.com/yukikurage/issue-tracker-api/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrDeliverableNotFound    = errors.New("deliverable not found")
	ErrDeliverableNameMissing = errors.New("deliverable name is required")
)

// DeliverableService handles deliverable business logic.
type DeliverableService struct {
	deliverableRepo repository.DeliverableRepository
	projectRepo     repository.ProjectRepository
	store           storage.Store
	activity        *ActivityService
}

// NewDeliverableService creates a new DeliverableService
func NewDeliverableService(deliverableRepo repository.DeliverableRepository, projectRepo repository.ProjectRepository, store storage.Store, activity *ActivityService) *DeliverableService {
	return &DeliverableService{
		deliverableRepo: deliverableRepo,
		projectRepo:     projectRepo,
		store:           store,
		activity:        activity,
	}
}

// CreateDeliverableInput represents input for creating a deliverable.
type CreateDeliverableInput struct {
	ProjectID   uint64
	Name        string
	Description string
	CreatorID   uint64
}

// Create creates a deliverable at the tail of the project's display order.
func (s *DeliverableService) Create(input CreateDeliverableInput) (*models.Deliverable, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrDeliverableNameMissing
	}

	role, err := s.memberRole(input.ProjectID, input.CreatorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(role, authz.ActionCreateDeliverable); err != nil {
		return nil, err
	}

	deliverable := &models.Deliverable{
		ProjectID:   input.ProjectID,
		Name:        input.Name,
		Description: input.Description,
		CreatorID:   input.CreatorID,
	}

	if err := s.deliverableRepo.Create(deliverable); err != nil {
		return nil, fmt.Errorf("failed to create deliverable: %w", err)
	}

	s.activity.Record(input.CreatorID, input.ProjectID, "deliverable", deliverable.ID, "create", map[string]interface{}{
		"name": deliverable.Name,
	})

	return deliverable, nil
}

// Get returns a deliverable.
func (s *DeliverableService) Get(deliverableID uint64) (*models.Deliverable, error) {
	deliverable, err := s.deliverableRepo.FindByID(deliverableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliverableNotFound
		}
		return nil, fmt.Errorf("failed to find deliverable: %w", err)
	}
	return deliverable, nil
}

// ListByProject lists a project's deliverables in display order.
func (s *DeliverableService) ListByProject(projectID uint64) ([]models.Deliverable, error) {
	deliverables, err := s.deliverableRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliverables: %w", err)
	}
	return deliverables, nil
}

// UpdateDeliverableInput carries optional field updates.
type UpdateDeliverableInput struct {
	Name        *string
	Description *string
}

// Update updates a deliverable's fields.
func (s *DeliverableService) Update(deliverableID, actorID uint64, input UpdateDeliverableInput) (*models.Deliverable, error) {
	deliverable, err := s.Get(deliverableID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberRole(deliverable.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(role, authz.ActionUpdateDeliverable); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrDeliverableNameMissing
		}
		deliverable.Name = name
	}
	if input.Description != nil {
		deliverable.Description = *input.Description
	}

	if err := s.deliverableRepo.Update(deliverable); err != nil {
		return nil, fmt.Errorf("failed to update deliverable: %w", err)
	}

	s.activity.Record(actorID, deliverable.ProjectID, "deliverable", deliverable.ID, "update", map[string]interface{}{
		"name": deliverable.Name,
	})

	return deliverable, nil
}

// Delete removes a deliverable and cascades to everything it owns. The
// permission check runs here and again inside the repository transaction.
func (s *DeliverableService) Delete(ctx context.Context, deliverableID, actorID uint64) error {
	deliverable, err := s.Get(deliverableID)
	if err != nil {
		return err
	}

	role, err := s.memberRole(deliverable.ProjectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanDelete(role, deliverable.CreatorID, actorID) {
		return authz.ErrDenied
	}

	removedKeys, err := s.deliverableRepo.Delete(deliverableID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeliverableNotFound
		}
		return fmt.Errorf("failed to delete deliverable: %w", err)
	}

	for _, key := range removedKeys {
		if err := s.store.Remove(ctx, key); err != nil {
			logger.Warn().Err(err).Str("object_key", key).Msg("failed to remove attachment object")
		}
	}

	s.activity.Record(actorID, deliverable.ProjectID, "deliverable", deliverableID, "delete", map[string]interface{}{
		"name": deliverable.Name,
	})

	return nil
}

// Reorder applies a new display order to a project's deliverables.
func (s *DeliverableService) Reorder(projectID, actorID uint64, ids []uint64) error {
	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(role, authz.ActionReorderDeliverables); err != nil {
		return err
	}

	if err := s.deliverableRepo.Reorder(projectID, ids, actorID); err != nil {
		if errors.Is(err, repository.ErrScopeMismatch) || errors.Is(err, authz.ErrDenied) {
			return err
		}
		return fmt.Errorf("failed to reorder deliverables: %w", err)
	}

	s.activity.Record(actorID, projectID, "deliverable", projectID, "reorder", map[string]interface{}{
		"count": len(ids),
	})

	return nil
}

func (s *DeliverableService) memberRole(projectID, userID uint64) (authz.Role, error) {
	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authz.ErrDenied
		}
		return "", fmt.Errorf("failed to verify membership: %w", err)
	}
	return authz.Normalize(string(member.Role)), nil
}
