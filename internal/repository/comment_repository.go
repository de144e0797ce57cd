package repository

import (
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Create creates a new comment
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// FindByID finds a comment by ID with optional preloading
func (r *GormCommentRepository) FindByID(id uint64, preload ...string) (*models.Comment, error) {
	var comment models.Comment
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByTicket lists a ticket's comments oldest first
func (r *GormCommentRepository) ListByTicket(ticketID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Preload("Creator").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete removes a comment and its attachments in one transaction. The
// actor's role is re-derived inside the transaction: the creator or a
// developer-or-above may delete.
func (r *GormCommentRepository) Delete(id, actorID uint64) ([]string, error) {
	var removedKeys []string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			return err
		}

		var ticket models.Ticket
		if err := tx.First(&ticket, comment.TicketID).Error; err != nil {
			return err
		}

		projectID, err := ticketProjectID(tx, &ticket)
		if err != nil {
			return err
		}

		role, err := projectRole(tx, projectID, actorID)
		if err != nil {
			return err
		}
		if !authz.CanDelete(role, comment.CreatorID, actorID) {
			return authz.ErrDenied
		}

		return deleteCascade(tx, EntityComment, []uint64{id}, &removedKeys)
	})
	if err != nil {
		return nil, err
	}

	return removedKeys, nil
}
