package repository

import (
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"gorm.io/gorm"
)

// EntityType names an entity kind in the ownership graph.
type EntityType string

const (
	EntityProject     EntityType = "project"
	EntityDeliverable EntityType = "deliverable"
	EntityTicket      EntityType = "ticket"
	EntityComment     EntityType = "comment"
	EntityAttachment  EntityType = "attachment"
)

// edge is one ownership link. Cascade deletes walk these edges depth-first
// inside a single transaction, so adding a new child entity type only means
// registering an edge here.
type edge struct {
	child   EntityType
	collect func(tx *gorm.DB, parentIDs []uint64) ([]uint64, error)
}

func collectByColumn(model interface{}, column string) func(tx *gorm.DB, parentIDs []uint64) ([]uint64, error) {
	return func(tx *gorm.DB, parentIDs []uint64) ([]uint64, error) {
		var ids []uint64
		err := tx.Model(model).Where(column+" IN ?", parentIDs).Pluck("id", &ids).Error
		return ids, err
	}
}

func collectAttachments(ownerType string) func(tx *gorm.DB, parentIDs []uint64) ([]uint64, error) {
	return func(tx *gorm.DB, parentIDs []uint64) ([]uint64, error) {
		var ids []uint64
		err := tx.Model(&models.Attachment{}).
			Where("owner_type = ? AND owner_id IN ?", ownerType, parentIDs).
			Pluck("id", &ids).Error
		return ids, err
	}
}

var ownershipEdges = map[EntityType][]edge{
	EntityProject: {
		{child: EntityDeliverable, collect: collectByColumn(&models.Deliverable{}, "project_id")},
	},
	EntityDeliverable: {
		{child: EntityTicket, collect: collectByColumn(&models.Ticket{}, "deliverable_id")},
	},
	EntityTicket: {
		{child: EntityComment, collect: collectByColumn(&models.Comment{}, "ticket_id")},
		{child: EntityAttachment, collect: collectAttachments(constants.OwnerTypeTicket)},
	},
	EntityComment: {
		{child: EntityAttachment, collect: collectAttachments(constants.OwnerTypeComment)},
	},
}

// deleteCascade removes the given entities and all their descendants within
// tx. Object keys of removed attachments are appended to removedKeys so the
// caller can clean up blob storage after the transaction commits.
func deleteCascade(tx *gorm.DB, entityType EntityType, ids []uint64, removedKeys *[]string) error {
	if len(ids) == 0 {
		return nil
	}

	for _, e := range ownershipEdges[entityType] {
		childIDs, err := e.collect(tx, ids)
		if err != nil {
			return err
		}
		if err := deleteCascade(tx, e.child, childIDs, removedKeys); err != nil {
			return err
		}
	}

	if entityType == EntityAttachment && removedKeys != nil {
		var keys []string
		if err := tx.Model(&models.Attachment{}).Where("id IN ?", ids).Pluck("object_key", &keys).Error; err != nil {
			return err
		}
		*removedKeys = append(*removedKeys, keys...)
	}

	return deleteRows(tx, entityType, ids)
}

func deleteRows(tx *gorm.DB, entityType EntityType, ids []uint64) error {
	switch entityType {
	case EntityProject:
		return tx.Where("id IN ?", ids).Delete(&models.Project{}).Error
	case EntityDeliverable:
		return tx.Where("id IN ?", ids).Delete(&models.Deliverable{}).Error
	case EntityTicket:
		return tx.Where("id IN ?", ids).Delete(&models.Ticket{}).Error
	case EntityComment:
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	case EntityAttachment:
		return tx.Where("id IN ?", ids).Delete(&models.Attachment{}).Error
	}
	return nil
}
