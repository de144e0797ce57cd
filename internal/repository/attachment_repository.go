package repository

import (
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"gorm.io/gorm"
)

// GormAttachmentRepository is a GORM implementation of AttachmentRepository
type GormAttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new AttachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &GormAttachmentRepository{db: db}
}

// Create creates a new attachment row
func (r *GormAttachmentRepository) Create(att *models.Attachment) error {
	return r.db.Create(att).Error
}

// FindByID finds an attachment by ID
func (r *GormAttachmentRepository) FindByID(id uint64) (*models.Attachment, error) {
	var att models.Attachment
	if err := r.db.First(&att, id).Error; err != nil {
		return nil, err
	}
	return &att, nil
}

// ListByOwner lists attachments of a ticket or comment
func (r *GormAttachmentRepository) ListByOwner(ownerType string, ownerID uint64) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("created_at ASC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

// Delete removes an attachment row and returns its object key. The actor's
// role is re-derived inside the transaction: the uploader or a
// developer-or-above may delete.
func (r *GormAttachmentRepository) Delete(id, actorID uint64) (string, error) {
	var objectKey string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var att models.Attachment
		if err := tx.First(&att, id).Error; err != nil {
			return err
		}

		projectID, err := attachmentProjectID(tx, &att)
		if err != nil {
			return err
		}

		role, err := projectRole(tx, projectID, actorID)
		if err != nil {
			return err
		}
		if !authz.CanDelete(role, att.CreatorID, actorID) {
			return authz.ErrDenied
		}

		objectKey = att.ObjectKey
		return tx.Delete(&att).Error
	})
	if err != nil {
		return "", err
	}

	return objectKey, nil
}

// attachmentProjectID walks from an attachment's owner up to its project.
func attachmentProjectID(tx *gorm.DB, att *models.Attachment) (uint64, error) {
	ticketID := att.OwnerID
	if att.OwnerType == constants.OwnerTypeComment {
		var comment models.Comment
		if err := tx.First(&comment, att.OwnerID).Error; err != nil {
			return 0, err
		}
		ticketID = comment.TicketID
	}

	var ticket models.Ticket
	if err := tx.First(&ticket, ticketID).Error; err != nil {
		return 0, err
	}

	return ticketProjectID(tx, &ticket)
}
