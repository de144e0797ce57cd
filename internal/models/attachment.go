package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment is a stored file owned by a ticket or a comment. ObjectKey is
// the key of the blob in object storage; the row is only written after the
// upload passed size and MIME validation.
type Attachment struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	OwnerType   string         `gorm:"type:varchar(20);not null;index:idx_attachments_owner" json:"owner_type"`
	OwnerID     uint64         `gorm:"not null;index:idx_attachments_owner" json:"owner_id"`
	FileName    string         `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType string         `gorm:"type:varchar(100);not null" json:"content_type"`
	Size        int64          `gorm:"not null" json:"size"`
	ObjectKey   string         `gorm:"type:varchar(255);not null" json:"-"`
	CreatorID   uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
