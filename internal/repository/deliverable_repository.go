package repository

import (
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"gorm.io/gorm"
)

// GormDeliverableRepository is a GORM implementation of DeliverableRepository
type GormDeliverableRepository struct {
	db *gorm.DB
}

// NewDeliverableRepository creates a new DeliverableRepository
func NewDeliverableRepository(db *gorm.DB) DeliverableRepository {
	return &GormDeliverableRepository{db: db}
}

// Create inserts a deliverable at the tail of its project's display order.
func (r *GormDeliverableRepository) Create(d *models.Deliverable) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var next int
		err := tx.Model(&models.Deliverable{}).
			Where("project_id = ?", d.ProjectID).
			Select("COALESCE(MAX(display_order) + 1, 0)").
			Scan(&next).Error
		if err != nil {
			return err
		}

		d.DisplayOrder = next
		return tx.Create(d).Error
	})
}

// FindByID finds a deliverable by ID with optional preloading
func (r *GormDeliverableRepository) FindByID(id uint64, preload ...string) (*models.Deliverable, error) {
	var d models.Deliverable
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByProject lists a project's deliverables in display order
func (r *GormDeliverableRepository) ListByProject(projectID uint64) ([]models.Deliverable, error) {
	var deliverables []models.Deliverable
	if err := r.db.Where("project_id = ?", projectID).
		Order("display_order ASC").
		Find(&deliverables).Error; err != nil {
		return nil, err
	}
	return deliverables, nil
}

// Update updates a deliverable
func (r *GormDeliverableRepository) Update(d *models.Deliverable) error {
	return r.db.Save(d).Error
}

// Delete removes a deliverable and cascades to its tickets, their comments
// and attachments, all in one transaction. The actor's role is re-derived
// inside the transaction: the creator or a developer-or-above may delete.
func (r *GormDeliverableRepository) Delete(id, actorID uint64) ([]string, error) {
	var removedKeys []string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var d models.Deliverable
		if err := tx.First(&d, id).Error; err != nil {
			return err
		}

		role, err := projectRole(tx, d.ProjectID, actorID)
		if err != nil {
			return err
		}
		if !authz.CanDelete(role, d.CreatorID, actorID) {
			return authz.ErrDenied
		}

		return deleteCascade(tx, EntityDeliverable, []uint64{id}, &removedKeys)
	})
	if err != nil {
		return nil, err
	}

	return removedKeys, nil
}

// Reorder applies positions 0..N-1 to the given deliverables of a project in
// input order. All positions update or none do; an id outside the project
// aborts the transaction with ErrScopeMismatch.
func (r *GormDeliverableRepository) Reorder(projectID uint64, ids []uint64, actorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		role, err := projectRole(tx, projectID, actorID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(role, authz.ActionReorderDeliverables); err != nil {
			return err
		}

		// Explicit scope count instead of per-row RowsAffected: the mysql
		// driver reports changed rows, so a deliverable keeping its current
		// position would look like a miss.
		var matched int64
		if err := tx.Model(&models.Deliverable{}).
			Where("project_id = ? AND id IN ?", projectID, ids).
			Count(&matched).Error; err != nil {
			return err
		}
		if matched != int64(len(ids)) {
			return ErrScopeMismatch
		}

		for position, id := range ids {
			res := tx.Model(&models.Deliverable{}).
				Where("id = ?", id).
				Update("display_order", position)
			if res.Error != nil {
				return res.Error
			}
		}

		return nil
	})
}
