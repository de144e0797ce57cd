package repository

import (
	"errors"

	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrCrossProjectMove is returned when a ticket move targets a
	// deliverable in a different project.
	ErrCrossProjectMove = errors.New("cannot move ticket to a deliverable in another project")
	// ErrScopeMismatch is returned when a reorder request references an
	// entity outside the reorder scope; the transaction is rolled back.
	ErrScopeMismatch = errors.New("entity does not belong to the reorder scope")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uint64) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// CreateWithOwner creates a project and the owner membership within a
	// single transaction.
	CreateWithOwner(project *models.Project, member *models.ProjectMember) error
	FindByID(id uint64, preload ...string) (*models.Project, error)
	Update(project *models.Project) error

	// Delete removes a project and everything it owns in one transaction,
	// re-checking the actor's role inside it. Returns the object keys of
	// removed attachments so callers can sweep blob storage.
	Delete(id, actorID uint64) ([]string, error)

	AddMember(member *models.ProjectMember) error
	RemoveMember(projectID, userID uint64) error
	UpdateMemberRole(projectID, userID uint64, role authz.Role) error
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)
	ListMembersByUserID(userID uint64) ([]models.ProjectMember, error)
	ListMembers(projectID uint64) ([]models.ProjectMember, error)
}

// DeliverableRepository defines the interface for deliverable data access
type DeliverableRepository interface {
	// Create assigns the next display_order within the project.
	Create(d *models.Deliverable) error
	FindByID(id uint64, preload ...string) (*models.Deliverable, error)
	ListByProject(projectID uint64) ([]models.Deliverable, error)
	Update(d *models.Deliverable) error

	// Delete cascades to tickets, comments and attachments in one
	// transaction, re-checking the actor's role inside it.
	Delete(id, actorID uint64) ([]string, error)

	// Reorder applies positions 0..N-1 to the given deliverables of a
	// project atomically.
	Reorder(projectID uint64, ids []uint64, actorID uint64) error
}

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	// Create assigns the next display_order within the ticket's
	// (deliverable, priority) group.
	Create(t *models.Ticket) error
	FindByID(id uint64, preload ...string) (*models.Ticket, error)
	ListByDeliverable(deliverableID uint64) ([]models.Ticket, error)
	Update(t *models.Ticket) error

	// Delete cascades to comments and attachments in one transaction,
	// re-checking the actor's role inside it.
	Delete(id, actorID uint64) ([]string, error)

	// Reorder applies positions 0..N-1 within a (deliverable, priority)
	// group atomically.
	Reorder(deliverableID uint64, priorityID int, ids []uint64, actorID uint64) error

	// Move transfers a ticket to another deliverable of the same project,
	// placing it at the tail of the destination group.
	Move(ticketID, destDeliverableID, actorID uint64) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(comment *models.Comment) error
	FindByID(id uint64, preload ...string) (*models.Comment, error)
	ListByTicket(ticketID uint64) ([]models.Comment, error)
	Delete(id, actorID uint64) ([]string, error)
}

// AttachmentRepository defines the interface for attachment data access
type AttachmentRepository interface {
	Create(att *models.Attachment) error
	FindByID(id uint64) (*models.Attachment, error)
	ListByOwner(ownerType string, ownerID uint64) ([]models.Attachment, error)

	// Delete removes the row and returns its object key for blob cleanup.
	Delete(id, actorID uint64) (string, error)
}

// ActivityRepository defines the interface for the append-only activity log
type ActivityRepository interface {
	Create(entry *models.ActivityLog) error
	ListByProject(projectID uint64, page utils.PaginationParams) ([]models.ActivityLog, int64, error)
}

// projectRole re-derives the actor's role for a project inside the given
// transaction. A missing membership is a denial, not an error.
func projectRole(tx *gorm.DB, projectID, userID uint64) (authz.Role, error) {
	var member models.ProjectMember
	err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authz.ErrDenied
		}
		return "", err
	}
	return authz.Normalize(string(member.Role)), nil
}

// ticketProjectID resolves the project a ticket belongs to via its deliverable.
func ticketProjectID(tx *gorm.DB, ticket *models.Ticket) (uint64, error) {
	var deliverable models.Deliverable
	if err := tx.First(&deliverable, ticket.DeliverableID).Error; err != nil {
		return 0, err
	}
	return deliverable.ProjectID, nil
}
