package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/storage"
	"github.com/yukikurage/issue-tracker-api/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrAssigneeNotFound = errors.New("assignee is not a member of the project")
)

// TicketService handles ticket business logic.
type TicketService struct {
	ticketRepo      repository.TicketRepository
	deliverableRepo repository.DeliverableRepository
	projectRepo     repository.ProjectRepository
	userRepo        repository.UserRepository
	store           storage.Store
	mailer          Mailer
	activity        *ActivityService
}

// NewTicketService creates a new TicketService
func NewTicketService(
	ticketRepo repository.TicketRepository,
	deliverableRepo repository.DeliverableRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	store storage.Store,
	mailer Mailer,
	activity *ActivityService,
) *TicketService {
	return &TicketService{
		ticketRepo:      ticketRepo,
		deliverableRepo: deliverableRepo,
		projectRepo:     projectRepo,
		userRepo:        userRepo,
		store:           store,
		mailer:          mailer,
		activity:        activity,
	}
}

// CreateTicketInput represents input for creating a ticket.
type CreateTicketInput struct {
	DeliverableID uint64
	Title         string
	Description   string
	URL           string
	StatusID      int
	PriorityID    int
	AssignedTo    *uint64
	CreatorID     uint64
}

// Create creates a ticket at the tail of its (deliverable, priority) group.
func (s *TicketService) Create(input CreateTicketInput) (*models.Ticket, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	deliverable, err := s.deliverableRepo.FindByID(input.DeliverableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliverableNotFound
		}
		return nil, fmt.Errorf("failed to find deliverable: %w", err)
	}

	role, err := s.memberRole(deliverable.ProjectID, input.CreatorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(role, authz.ActionCreateTicket); err != nil {
		return nil, err
	}

	if input.StatusID == 0 {
		input.StatusID = constants.DefaultStatusID
	}
	if input.PriorityID == 0 {
		input.PriorityID = constants.DefaultPriorityID
	}

	if input.AssignedTo != nil {
		if err := s.ensureMember(deliverable.ProjectID, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	ticket := &models.Ticket{
		DeliverableID: input.DeliverableID,
		Title:         input.Title,
		Description:   input.Description,
		URL:           input.URL,
		StatusID:      input.StatusID,
		PriorityID:    input.PriorityID,
		AssignedTo:    input.AssignedTo,
		CreatorID:     input.CreatorID,
	}

	if err := s.ticketRepo.Create(ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.activity.Record(input.CreatorID, deliverable.ProjectID, "ticket", ticket.ID, "create", map[string]interface{}{
		"title": ticket.Title,
	})

	return s.ticketRepo.FindByID(ticket.ID, "Creator", "Assignee", "Deliverable")
}

// Get returns a ticket with related data.
func (s *TicketService) Get(ticketID uint64) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.FindByID(ticketID, "Creator", "Assignee", "Deliverable", "Comments", "Comments.Creator")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}
	return ticket, nil
}

// ListByDeliverable lists a deliverable's tickets by priority group and
// display order.
func (s *TicketService) ListByDeliverable(deliverableID uint64) ([]models.Ticket, error) {
	tickets, err := s.ticketRepo.ListByDeliverable(deliverableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// UpdateTicketInput carries optional field updates.
type UpdateTicketInput struct {
	Title       *string
	Description *string
	URL         *string
}

// Update updates a ticket's fields. Developers and above may update any
// ticket; a tester only their own.
func (s *TicketService) Update(ticketID, actorID uint64, input UpdateTicketInput) (*models.Ticket, error) {
	ticket, projectID, err := s.ticketWithProject(ticketID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModifyTicket(role, ticket.CreatorID, actorID) {
		return nil, authz.ErrDenied
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = *input.Description
	}
	if input.URL != nil {
		ticket.URL = *input.URL
	}

	if err := s.ticketRepo.Update(ticket); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	s.activity.Record(actorID, projectID, "ticket", ticket.ID, "update", map[string]interface{}{
		"title": ticket.Title,
	})

	return s.ticketRepo.FindByID(ticket.ID, "Creator", "Assignee", "Deliverable")
}

// ChangeStatus sets a ticket's status. Same permission rule as Update.
func (s *TicketService) ChangeStatus(ticketID, actorID uint64, statusID int) (*models.Ticket, error) {
	ticket, projectID, err := s.ticketWithProject(ticketID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModifyTicket(role, ticket.CreatorID, actorID) {
		return nil, authz.ErrDenied
	}

	ticket.StatusID = statusID
	if err := s.ticketRepo.Update(ticket); err != nil {
		return nil, fmt.Errorf("failed to change status: %w", err)
	}

	s.activity.Record(actorID, projectID, "ticket", ticket.ID, "change_status", map[string]interface{}{
		"status_id": statusID,
	})

	return ticket, nil
}

// Assign sets a ticket's assignee and notifies them by mail, best effort.
// Passing nil clears the assignment.
func (s *TicketService) Assign(ticketID, actorID uint64, assigneeID *uint64) (*models.Ticket, error) {
	ticket, projectID, err := s.ticketWithProject(ticketID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(role, authz.ActionAssignTicket); err != nil {
		return nil, err
	}

	if assigneeID != nil {
		if err := s.ensureMember(projectID, *assigneeID); err != nil {
			return nil, err
		}
	}

	ticket.AssignedTo = assigneeID
	if err := s.ticketRepo.Update(ticket); err != nil {
		return nil, fmt.Errorf("failed to assign ticket: %w", err)
	}

	s.activity.Record(actorID, projectID, "ticket", ticket.ID, "assign", map[string]interface{}{
		"assigned_to": assigneeID,
	})

	if assigneeID != nil {
		s.notifyAssignee(*assigneeID, ticket)
	}

	return ticket, nil
}

// Delete removes a ticket and cascades to its comments and attachments. The
// permission check runs here and again inside the repository transaction.
func (s *TicketService) Delete(ctx context.Context, ticketID, actorID uint64) error {
	ticket, projectID, err := s.ticketWithProject(ticketID)
	if err != nil {
		return err
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanDelete(role, ticket.CreatorID, actorID) {
		return authz.ErrDenied
	}

	removedKeys, err := s.ticketRepo.Delete(ticketID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTicketNotFound
		}
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	for _, key := range removedKeys {
		if err := s.store.Remove(ctx, key); err != nil {
			logger.Warn().Err(err).Str("object_key", key).Msg("failed to remove attachment object")
		}
	}

	s.activity.Record(actorID, projectID, "ticket", ticketID, "delete", map[string]interface{}{
		"title": ticket.Title,
	})

	return nil
}

// Reorder applies a new display order within a (deliverable, priority) group.
func (s *TicketService) Reorder(deliverableID uint64, priorityID int, actorID uint64, ids []uint64) error {
	deliverable, err := s.deliverableRepo.FindByID(deliverableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeliverableNotFound
		}
		return fmt.Errorf("failed to find deliverable: %w", err)
	}

	role, err := s.memberRole(deliverable.ProjectID, actorID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(role, authz.ActionReorderTickets); err != nil {
		return err
	}

	if err := s.ticketRepo.Reorder(deliverableID, priorityID, ids, actorID); err != nil {
		if errors.Is(err, repository.ErrScopeMismatch) || errors.Is(err, authz.ErrDenied) {
			return err
		}
		return fmt.Errorf("failed to reorder tickets: %w", err)
	}

	s.activity.Record(actorID, deliverable.ProjectID, "ticket", deliverableID, "reorder", map[string]interface{}{
		"count":       len(ids),
		"priority_id": priorityID,
	})

	return nil
}

// Move transfers a ticket to another deliverable of the same project.
func (s *TicketService) Move(ticketID, destDeliverableID, actorID uint64) error {
	ticket, projectID, err := s.ticketWithProject(ticketID)
	if err != nil {
		return err
	}

	role, err := s.memberRole(projectID, actorID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(role, authz.ActionMoveTicket); err != nil {
		return err
	}

	if err := s.ticketRepo.Move(ticketID, destDeliverableID, actorID); err != nil {
		if errors.Is(err, repository.ErrCrossProjectMove) || errors.Is(err, authz.ErrDenied) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeliverableNotFound
		}
		return fmt.Errorf("failed to move ticket: %w", err)
	}

	s.activity.Record(actorID, projectID, "ticket", ticket.ID, "move", map[string]interface{}{
		"deliverable_id": destDeliverableID,
	})

	return nil
}

func (s *TicketService) ticketWithProject(ticketID uint64) (*models.Ticket, uint64, error) {
	ticket, err := s.ticketRepo.FindByID(ticketID, "Deliverable")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrTicketNotFound
		}
		return nil, 0, fmt.Errorf("failed to find ticket: %w", err)
	}
	return ticket, ticket.Deliverable.ProjectID, nil
}

func (s *TicketService) memberRole(projectID, userID uint64) (authz.Role, error) {
	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authz.ErrDenied
		}
		return "", fmt.Errorf("failed to verify membership: %w", err)
	}
	return authz.Normalize(string(member.Role)), nil
}

func (s *TicketService) ensureMember(projectID, userID uint64) error {
	if _, err := s.projectRepo.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to verify membership: %w", err)
	}
	return nil
}

func (s *TicketService) notifyAssignee(assigneeID uint64, ticket *models.Ticket) {
	user, err := s.userRepo.FindByID(assigneeID)
	if err != nil {
		logger.Warn().Err(err).Uint64("user_id", assigneeID).Msg("failed to load assignee for notification")
		return
	}

	subject := fmt.Sprintf("Ticket assigned to you: %s", ticket.Title)
	body := fmt.Sprintf("<p>You have been assigned ticket <strong>%s</strong>.</p>", ticket.Title)
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		logger.Warn().Err(err).Str("email", user.Email).Msg("failed to send assignment notification")
	}
}
