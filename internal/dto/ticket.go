package dto

import (
	"time"

	"github.com/yukikurage/issue-tracker-api/internal/models"
)

// DeliverableDTO represents a deliverable in API responses
type DeliverableDTO struct {
	ID           uint64    `json:"id"`
	ProjectID    uint64    `json:"project_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	CreatorID    uint64    `json:"creator_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// TicketDTO represents a ticket in API responses
type TicketDTO struct {
	ID            uint64       `json:"id"`
	DeliverableID uint64       `json:"deliverable_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	URL           string       `json:"url"`
	StatusID      int          `json:"status_id"`
	PriorityID    int          `json:"priority_id"`
	AssignedTo    *uint64      `json:"assigned_to"`
	CreatorID     uint64       `json:"creator_id"`
	DisplayOrder  int          `json:"display_order"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Creator       *UserDTO     `json:"creator,omitempty"`
	Assignee      *UserDTO     `json:"assignee,omitempty"`
	Comments      []CommentDTO `json:"comments,omitempty"`
}

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID        uint64    `json:"id"`
	TicketID  uint64    `json:"ticket_id"`
	Body      string    `json:"body"`
	URL       string    `json:"url"`
	CreatorID uint64    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	Creator   *UserDTO  `json:"creator,omitempty"`
}

// AttachmentDTO represents an attachment in API responses
type AttachmentDTO struct {
	ID          uint64    `json:"id"`
	OwnerType   string    `json:"owner_type"`
	OwnerID     uint64    `json:"owner_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatorID   uint64    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversion functions

// ToDeliverableDTO converts a Deliverable model to DeliverableDTO
func ToDeliverableDTO(d models.Deliverable) DeliverableDTO {
	return DeliverableDTO{
		ID:           d.ID,
		ProjectID:    d.ProjectID,
		Name:         d.Name,
		Description:  d.Description,
		DisplayOrder: d.DisplayOrder,
		CreatorID:    d.CreatorID,
		CreatedAt:    d.CreatedAt,
	}
}

// ToDeliverableDTOs converts a slice of deliverables
func ToDeliverableDTOs(deliverables []models.Deliverable) []DeliverableDTO {
	dtos := make([]DeliverableDTO, len(deliverables))
	for i, d := range deliverables {
		dtos[i] = ToDeliverableDTO(d)
	}
	return dtos
}

// ToTicketDTO converts a Ticket model to TicketDTO
func ToTicketDTO(ticket models.Ticket) TicketDTO {
	dto := TicketDTO{
		ID:            ticket.ID,
		DeliverableID: ticket.DeliverableID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		URL:           ticket.URL,
		StatusID:      ticket.StatusID,
		PriorityID:    ticket.PriorityID,
		AssignedTo:    ticket.AssignedTo,
		CreatorID:     ticket.CreatorID,
		DisplayOrder:  ticket.DisplayOrder,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}

	// Include creator if preloaded
	if ticket.Creator.ID != 0 {
		creator := ToUserDTO(ticket.Creator)
		dto.Creator = &creator
	}

	// Include assignee if preloaded
	if ticket.Assignee != nil && ticket.Assignee.ID != 0 {
		assignee := ToUserDTO(*ticket.Assignee)
		dto.Assignee = &assignee
	}

	// Include comments if preloaded
	if len(ticket.Comments) > 0 {
		dto.Comments = ToCommentDTOs(ticket.Comments)
	}

	return dto
}

// ToTicketDTOs converts a slice of tickets
func ToTicketDTOs(tickets []models.Ticket) []TicketDTO {
	dtos := make([]TicketDTO, len(tickets))
	for i, t := range tickets {
		dtos[i] = ToTicketDTO(t)
	}
	return dtos
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		Body:      comment.Body,
		URL:       comment.URL,
		CreatorID: comment.CreatorID,
		CreatedAt: comment.CreatedAt,
	}

	if comment.Creator.ID != 0 {
		creator := ToUserDTO(comment.Creator)
		dto.Creator = &creator
	}

	return dto
}

// ToCommentDTOs converts a slice of comments
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	dtos := make([]CommentDTO, len(comments))
	for i, c := range comments {
		dtos[i] = ToCommentDTO(c)
	}
	return dtos
}

// ToAttachmentDTO converts an Attachment model to AttachmentDTO
func ToAttachmentDTO(att models.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:          att.ID,
		OwnerType:   att.OwnerType,
		OwnerID:     att.OwnerID,
		FileName:    att.FileName,
		ContentType: att.ContentType,
		Size:        att.Size,
		CreatorID:   att.CreatorID,
		CreatedAt:   att.CreatedAt,
	}
}

// ToAttachmentDTOs converts a slice of attachments
func ToAttachmentDTOs(attachments []models.Attachment) []AttachmentDTO {
	dtos := make([]AttachmentDTO, len(attachments))
	for i, a := range attachments {
		dtos[i] = ToAttachmentDTO(a)
	}
	return dtos
}
