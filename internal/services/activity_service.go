package services

import (
	"encoding/json"

	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/utils"
	"github.com/yukikurage/issue-tracker-api/pkg/logger"
)

// ActivityService appends audit entries for successful mutations. Recording
// happens after the business transaction committed; a failed write is logged
// and dropped, never surfaced to the user and never retried.
type ActivityService struct {
	repo repository.ActivityRepository
}

// NewActivityService creates a new ActivityService
func NewActivityService(repo repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

// Record appends one activity entry, best effort.
func (s *ActivityService) Record(userID, projectID uint64, entityType string, entityID uint64, action string, metadata map[string]interface{}) {
	var metaStr string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metaStr = string(b)
		}
	}

	entry := &models.ActivityLog{
		UserID:     userID,
		ProjectID:  projectID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Metadata:   metaStr,
	}

	if err := s.repo.Create(entry); err != nil {
		logger.Warn().
			Err(err).
			Str("entity_type", entityType).
			Str("action", action).
			Uint64("project_id", projectID).
			Msg("dropped activity log entry")
	}
}

// ListByProject returns a page of a project's activity, newest first.
func (s *ActivityService) ListByProject(projectID uint64, page utils.PaginationParams) ([]models.ActivityLog, int64, error) {
	return s.repo.ListByProject(projectID, page)
}
