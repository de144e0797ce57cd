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
	ErrCommentNotFound = errors.New("comment not found")
	ErrCommentRequired = errors.New("comment body is required")
)

// CommentService handles comment business logic.
type CommentService struct {
	commentRepo repository.CommentRepository
	ticketRepo  repository.TicketRepository
	projectRepo repository.ProjectRepository
	store       storage.Store
	activity    *ActivityService
}

// NewCommentService creates a new CommentService
func NewCommentService(commentRepo repository.CommentRepository, ticketRepo repository.TicketRepository, projectRepo repository.ProjectRepository, store storage.Store, activity *ActivityService) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		ticketRepo:  ticketRepo,
		projectRepo: projectRepo,
		store:       store,
		activity:    activity,
	}
}

// CreateCommentInput represents input for creating a comment.
type CreateCommentInput struct {
	TicketID  uint64
	Body      string
	URL       string
	CreatorID uint64
}

// Create adds a comment to a ticket. Developers and above may comment on any
// ticket; a tester only on tickets they created; a viewer never.
func (s *CommentService) Create(input CreateCommentInput) (*models.Comment, error) {
	input.Body = strings.TrimSpace(input.Body)
	if input.Body == "" {
		return nil, ErrCommentRequired
	}

	ticket, projectID, err := s.ticketWithProject(input.TicketID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberRole(projectID, input.CreatorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(role, authz.ActionCreateComment); err != nil {
		return nil, err
	}
	if !authz.CanModifyTicket(role, ticket.CreatorID, input.CreatorID) {
		return nil, authz.ErrDenied
	}

	comment := &models.Comment{
		TicketID:  input.TicketID,
		Body:      input.Body,
		URL:       input.URL,
		CreatorID: input.CreatorID,
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.activity.Record(input.CreatorID, projectID, "comment", comment.ID, "create", map[string]interface{}{
		"ticket_id": input.TicketID,
	})

	return comment, nil
}

// ListByTicket lists a ticket's comments oldest first.
func (s *CommentService) ListByTicket(ticketID uint64) ([]models.Comment, error) {
	comments, err := s.commentRepo.ListByTicket(ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Delete removes a comment and its attachments. The permission check runs
// here and again inside the repository transaction.
func (s *CommentService) Delete(ctx context.Context, commentID, actorID uint64) error {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}

	_, projectID, err := s.ticketWithProject(comment.TicketID)
	if err != nil {
		return err
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanDelete(role, comment.CreatorID, actorID) {
		return authz.ErrDenied
	}

	removedKeys, err := s.commentRepo.Delete(commentID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	for _, key := range removedKeys {
		if err := s.store.Remove(ctx, key); err != nil {
			logger.Warn().Err(err).Str("object_key", key).Msg("failed to remove attachment object")
		}
	}

	s.activity.Record(actorID, projectID, "comment", commentID, "delete", nil)

	return nil
}

func (s *CommentService) ticketWithProject(ticketID uint64) (*models.Ticket, uint64, error) {
	ticket, err := s.ticketRepo.FindByID(ticketID, "Deliverable")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrTicketNotFound
		}
		return nil, 0, fmt.Errorf("failed to find ticket: %w", err)
	}
	return ticket, ticket.Deliverable.ProjectID, nil
}

func (s *CommentService) memberRole(projectID, userID uint64) (authz.Role, error) {
	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authz.ErrDenied
		}
		return "", fmt.Errorf("failed to verify membership: %w", err)
	}
	return authz.Normalize(string(member.Role)), nil
}
