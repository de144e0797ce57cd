package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/config"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/storage"
	"github.com/yukikurage/issue-tracker-api/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrInvalidOwnerType   = errors.New("invalid attachment owner type")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
)

// AttachmentService handles attachment business logic. Size and MIME checks
// run before anything is written, so a rejected upload leaves no partial
// state in storage or the database.
type AttachmentService struct {
	attachmentRepo repository.AttachmentRepository
	commentRepo    repository.CommentRepository
	ticketRepo     repository.TicketRepository
	projectRepo    repository.ProjectRepository
	store          storage.Store
	activity       *ActivityService
	cfg            *config.Config
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(
	attachmentRepo repository.AttachmentRepository,
	commentRepo repository.CommentRepository,
	ticketRepo repository.TicketRepository,
	projectRepo repository.ProjectRepository,
	store storage.Store,
	activity *ActivityService,
	cfg *config.Config,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		commentRepo:    commentRepo,
		ticketRepo:     ticketRepo,
		projectRepo:    projectRepo,
		store:          store,
		activity:       activity,
		cfg:            cfg,
	}
}

// UploadInput describes a file upload bound to a ticket or comment.
type UploadInput struct {
	OwnerType   string
	OwnerID     uint64
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
	ActorID     uint64
}

// Upload validates and stores a file, then records the attachment row. If
// the row insert fails the stored object is removed again, best effort.
func (s *AttachmentService) Upload(ctx context.Context, input UploadInput) (*models.Attachment, error) {
	// Reject before any write.
	if input.Size > s.cfg.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}
	if !s.mimeAllowed(input.ContentType) {
		return nil, ErrFileTypeNotAllowed
	}

	ticketCreatorID, projectID, err := s.resolveOwner(input.OwnerType, input.OwnerID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberRole(projectID, input.ActorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModifyTicket(role, ticketCreatorID, input.ActorID) {
		return nil, authz.ErrDenied
	}

	key := uuid.NewString() + filepath.Ext(input.FileName)
	if err := s.store.Put(ctx, key, input.Reader, input.Size, input.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	att := &models.Attachment{
		OwnerType:   input.OwnerType,
		OwnerID:     input.OwnerID,
		FileName:    input.FileName,
		ContentType: input.ContentType,
		Size:        input.Size,
		ObjectKey:   key,
		CreatorID:   input.ActorID,
	}

	if err := s.attachmentRepo.Create(att); err != nil {
		if removeErr := s.store.Remove(ctx, key); removeErr != nil {
			logger.Warn().Err(removeErr).Str("object_key", key).Msg("failed to remove orphaned object")
		}
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	s.activity.Record(input.ActorID, projectID, "attachment", att.ID, "upload", map[string]interface{}{
		"file_name": att.FileName,
		"size":      att.Size,
	})

	return att, nil
}

// Open returns an attachment row and a reader over its content. Any project
// member may download.
func (s *AttachmentService) Open(ctx context.Context, attachmentID, actorID uint64) (*models.Attachment, io.ReadCloser, error) {
	att, err := s.attachmentRepo.FindByID(attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, fmt.Errorf("failed to find attachment: %w", err)
	}

	_, projectID, err := s.resolveOwner(att.OwnerType, att.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.memberRole(projectID, actorID); err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Get(ctx, att.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}

	return att, rc, nil
}

// ListByOwner lists the attachments of a ticket or comment.
func (s *AttachmentService) ListByOwner(ownerType string, ownerID uint64) ([]models.Attachment, error) {
	attachments, err := s.attachmentRepo.ListByOwner(ownerType, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// Delete removes an attachment. The permission check runs here and again
// inside the repository transaction; the blob is removed after commit.
func (s *AttachmentService) Delete(ctx context.Context, attachmentID, actorID uint64) error {
	att, err := s.attachmentRepo.FindByID(attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return fmt.Errorf("failed to find attachment: %w", err)
	}

	_, projectID, err := s.resolveOwner(att.OwnerType, att.OwnerID)
	if err != nil {
		return err
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanDelete(role, att.CreatorID, actorID) {
		return authz.ErrDenied
	}

	objectKey, err := s.attachmentRepo.Delete(attachmentID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	if err := s.store.Remove(ctx, objectKey); err != nil {
		logger.Warn().Err(err).Str("object_key", objectKey).Msg("failed to remove attachment object")
	}

	s.activity.Record(actorID, projectID, "attachment", attachmentID, "delete", map[string]interface{}{
		"file_name": att.FileName,
	})

	return nil
}

func (s *AttachmentService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.cfg.AllowedMimeTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// resolveOwner walks from an attachment owner to the ticket creator and
// project. For comment-owned attachments the tester-own rule applies to the
// comment's ticket.
func (s *AttachmentService) resolveOwner(ownerType string, ownerID uint64) (ticketCreatorID, projectID uint64, err error) {
	ticketID := ownerID

	switch ownerType {
	case constants.OwnerTypeTicket:
	case constants.OwnerTypeComment:
		comment, err := s.commentRepo.FindByID(ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, 0, ErrCommentNotFound
			}
			return 0, 0, fmt.Errorf("failed to find comment: %w", err)
		}
		ticketID = comment.TicketID
	default:
		return 0, 0, ErrInvalidOwnerType
	}

	ticket, err := s.ticketRepo.FindByID(ticketID, "Deliverable")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrTicketNotFound
		}
		return 0, 0, fmt.Errorf("failed to find ticket: %w", err)
	}

	return ticket.CreatorID, ticket.Deliverable.ProjectID, nil
}

func (s *AttachmentService) memberRole(projectID, userID uint64) (authz.Role, error) {
	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authz.ErrDenied
		}
		return "", fmt.Errorf("failed to verify membership: %w", err)
	}
	return authz.Normalize(string(member.Role)), nil
}
