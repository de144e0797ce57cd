package repository

import (
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"gorm.io/gorm"
)

// GormTicketRepository is a GORM implementation of TicketRepository
type GormTicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &GormTicketRepository{db: db}
}

// Create inserts a ticket at the tail of its (deliverable, priority) group.
func (r *GormTicketRepository) Create(t *models.Ticket) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		next, err := nextTicketOrder(tx, t.DeliverableID, t.PriorityID)
		if err != nil {
			return err
		}

		t.DisplayOrder = next
		return tx.Create(t).Error
	})
}

func nextTicketOrder(tx *gorm.DB, deliverableID uint64, priorityID int) (int, error) {
	var next int
	err := tx.Model(&models.Ticket{}).
		Where("deliverable_id = ? AND priority_id = ?", deliverableID, priorityID).
		Select("COALESCE(MAX(display_order) + 1, 0)").
		Scan(&next).Error
	return next, err
}

// FindByID finds a ticket by ID with optional preloading
func (r *GormTicketRepository) FindByID(id uint64, preload ...string) (*models.Ticket, error) {
	var t models.Ticket
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByDeliverable lists a deliverable's tickets grouped by priority and
// ordered by display order within each group.
func (r *GormTicketRepository) ListByDeliverable(deliverableID uint64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := r.db.Where("deliverable_id = ?", deliverableID).
		Order("priority_id ASC, display_order ASC").
		Preload("Creator").
		Preload("Assignee").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// Update updates a ticket
func (r *GormTicketRepository) Update(t *models.Ticket) error {
	return r.db.Save(t).Error
}

// Delete removes a ticket and cascades to its comments and attachments in
// one transaction. The actor's role is re-derived inside the transaction:
// the creator or a developer-or-above may delete.
func (r *GormTicketRepository) Delete(id, actorID uint64) ([]string, error) {
	var removedKeys []string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var t models.Ticket
		if err := tx.First(&t, id).Error; err != nil {
			return err
		}

		projectID, err := ticketProjectID(tx, &t)
		if err != nil {
			return err
		}

		role, err := projectRole(tx, projectID, actorID)
		if err != nil {
			return err
		}
		if !authz.CanDelete(role, t.CreatorID, actorID) {
			return authz.ErrDenied
		}

		return deleteCascade(tx, EntityTicket, []uint64{id}, &removedKeys)
	})
	if err != nil {
		return nil, err
	}

	return removedKeys, nil
}

// Reorder applies positions 0..N-1 to the given tickets of a (deliverable,
// priority) group in input order. All positions update or none do; an id
// outside the group aborts the transaction with ErrScopeMismatch.
func (r *GormTicketRepository) Reorder(deliverableID uint64, priorityID int, ids []uint64, actorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var d models.Deliverable
		if err := tx.First(&d, deliverableID).Error; err != nil {
			return err
		}

		role, err := projectRole(tx, d.ProjectID, actorID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(role, authz.ActionReorderTickets); err != nil {
			return err
		}

		// Scope membership is checked with an explicit count rather than
		// per-row RowsAffected: the mysql driver reports changed rows, so a
		// ticket keeping its current position would look like a miss.
		var matched int64
		if err := tx.Model(&models.Ticket{}).
			Where("deliverable_id = ? AND priority_id = ? AND id IN ?", deliverableID, priorityID, ids).
			Count(&matched).Error; err != nil {
			return err
		}
		if matched != int64(len(ids)) {
			return ErrScopeMismatch
		}

		for position, id := range ids {
			res := tx.Model(&models.Ticket{}).
				Where("id = ?", id).
				Update("display_order", position)
			if res.Error != nil {
				return res.Error
			}
		}

		return nil
	})
}

// Move transfers a ticket to another deliverable. Both deliverables must
// belong to the same project; the ticket joins the tail of the destination
// (deliverable, priority) group.
func (r *GormTicketRepository) Move(ticketID, destDeliverableID, actorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var t models.Ticket
		if err := tx.First(&t, ticketID).Error; err != nil {
			return err
		}

		var src, dest models.Deliverable
		if err := tx.First(&src, t.DeliverableID).Error; err != nil {
			return err
		}
		if err := tx.First(&dest, destDeliverableID).Error; err != nil {
			return err
		}

		if src.ProjectID != dest.ProjectID {
			return ErrCrossProjectMove
		}

		role, err := projectRole(tx, src.ProjectID, actorID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(role, authz.ActionMoveTicket); err != nil {
			return err
		}

		next, err := nextTicketOrder(tx, dest.ID, t.PriorityID)
		if err != nil {
			return err
		}

		return tx.Model(&t).Updates(map[string]interface{}{
			"deliverable_id": dest.ID,
			"display_order":  next,
		}).Error
	})
}
