// Package handlers wires HTTP requests to the service layer. Mutating
// endpoints accept form-encoded POSTs, validate fields through the params
// schemas and answer through the dual-mode respond package.
package handlers

import (
	"errors"

	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/services"
)

// failureMessage maps a service error to the user-facing message of a
// success:false response. Authorization failures share one generic message
// so the response leaks nothing about what exists.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, authz.ErrDenied):
		return "You do not have permission to perform this action."
	case errors.Is(err, services.ErrProjectNotFound):
		return "Project not found."
	case errors.Is(err, services.ErrDeliverableNotFound):
		return "Deliverable not found."
	case errors.Is(err, services.ErrTicketNotFound):
		return "Ticket not found."
	case errors.Is(err, services.ErrCommentNotFound):
		return "Comment not found."
	case errors.Is(err, services.ErrAttachmentNotFound):
		return "Attachment not found."
	case errors.Is(err, services.ErrProjectNameMissing),
		errors.Is(err, services.ErrDeliverableNameMissing):
		return "Name is required."
	case errors.Is(err, services.ErrTitleRequired):
		return "Title is required."
	case errors.Is(err, services.ErrCommentRequired):
		return "Comment body is required."
	case errors.Is(err, services.ErrNoSuchUser):
		return "No user with that email address."
	case errors.Is(err, services.ErrMemberExists):
		return "That user is already a member of this project."
	case errors.Is(err, services.ErrMemberNotFound):
		return "Member not found."
	case errors.Is(err, services.ErrCannotTouchOwner):
		return "The project owner cannot be removed or demoted."
	case errors.Is(err, services.ErrInvalidRole):
		return "Invalid role."
	case errors.Is(err, services.ErrAssigneeNotFound):
		return "The assignee must be a member of the project."
	case errors.Is(err, services.ErrFileTooLarge):
		return "The file exceeds the maximum allowed size."
	case errors.Is(err, services.ErrFileTypeNotAllowed):
		return "That file type is not allowed."
	case errors.Is(err, services.ErrInvalidOwnerType):
		return "Invalid attachment target."
	case errors.Is(err, repository.ErrCrossProjectMove):
		return "Tickets cannot be moved to another project."
	case errors.Is(err, repository.ErrScopeMismatch):
		return "The reorder request did not match the current list."
	default:
		return "Something went wrong. Please try again."
	}
}
