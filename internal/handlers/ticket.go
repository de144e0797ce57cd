package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/dto"
	"github.com/yukikurage/issue-tracker-api/internal/middleware"
	"github.com/yukikurage/issue-tracker-api/internal/params"
	"github.com/yukikurage/issue-tracker-api/internal/respond"
	"github.com/yukikurage/issue-tracker-api/internal/services"
)

// TicketHandler coordinates ticket HTTP handlers.
type TicketHandler struct {
	ticketService     *services.TicketService
	attachmentService *services.AttachmentService
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(ticketService *services.TicketService, attachmentService *services.AttachmentService) *TicketHandler {
	return &TicketHandler{
		ticketService:     ticketService,
		attachmentService: attachmentService,
	}
}

// GetTicket returns the ticket loaded by RequireTicketAccess, with its
// comments and attachments.
func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, ok := middleware.GetTicket(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket not found in context"})
		return
	}

	full, err := h.ticketService.Get(ticket.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		return
	}

	attachments, err := h.attachmentService.ListByOwner(constants.OwnerTypeTicket, ticket.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attachments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket":      dto.ToTicketDTO(*full),
		"attachments": dto.ToAttachmentDTOs(attachments),
	})
}

// CreateTicket creates a ticket at the tail of its (deliverable, priority)
// group. Developer and above.
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "deliverable_id", Type: params.Int, Required: true, Message: "Deliverable is required."},
		{Name: "title", Type: params.String, Required: true, Message: "Title is required."},
		{Name: "description", Type: params.String},
		{Name: "url", Type: params.String},
		{Name: "status_id", Type: params.Int},
		{Name: "priority_id", Type: params.Int},
		{Name: "assigned_to", Type: params.Int},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/projects")
		return
	}

	input := services.CreateTicketInput{
		DeliverableID: p.Uint("deliverable_id"),
		Title:         p.String("title"),
		Description:   p.String("description"),
		URL:           p.String("url"),
		StatusID:      p.Int("status_id"),
		PriorityID:    p.Int("priority_id"),
		CreatorID:     userID,
	}
	if assignee, ok := p.OptionalUint("assigned_to"); ok {
		input.AssignedTo = &assignee
	}

	ticket, err := h.ticketService.Create(input)
	if err != nil {
		respond.Fail(c, failureMessage(err), "/projects")
		return
	}

	respond.OK(c, "Ticket created.", dto.ToTicketDTO(*ticket), fmt.Sprintf("/tickets/%d", ticket.ID))
}

// UpdateTicket updates a ticket's text fields. Developer and above; a tester
// only on their own tickets.
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ticket, ok := middleware.GetTicket(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket not found in context"})
		return
	}
	ticketPage := fmt.Sprintf("/tickets/%d", ticket.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "title", Type: params.String},
		{Name: "description", Type: params.String},
		{Name: "url", Type: params.String},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, ticketPage)
		return
	}

	input := services.UpdateTicketInput{}
	if p.Has("title") {
		v := p.String("title")
		input.Title = &v
	}
	if p.Has("description") {
		v := p.String("description")
		input.Description = &v
	}
	if p.Has("url") {
		v := p.String("url")
		input.URL = &v
	}

	updated, err := h.ticketService.Update(ticket.ID, userID, input)
	if err != nil {
		respond.Fail(c, failureMessage(err), ticketPage)
		return
	}

	respond.OK(c, "Ticket updated.", dto.ToTicketDTO(*updated), ticketPage)
}

// ChangeStatus sets a ticket's status.
func (h *TicketHandler) ChangeStatus(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ticket, ok := middleware.GetTicket(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket not found in context"})
		return
	}
	ticketPage := fmt.Sprintf("/tickets/%d", ticket.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "status_id", Type: params.Int, Required: true, Message: "Status is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, ticketPage)
		return
	}

	updated, err := h.ticketService.ChangeStatus(ticket.ID, userID, p.Int("status_id"))
	if err != nil {
		respond.Fail(c, failureMessage(err), ticketPage)
		return
	}

	respond.OK(c, "Status updated.", dto.ToTicketDTO(*updated), ticketPage)
}

// AssignTicket sets or clears a ticket's assignee. Developer and above. An
// empty assigned_to field clears the assignment.
func (h *TicketHandler) AssignTicket(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ticket, ok := middleware.GetTicket(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket not found in context"})
		return
	}
	ticketPage := fmt.Sprintf("/tickets/%d", ticket.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "assigned_to", Type: params.Int},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, ticketPage)
		return
	}

	var assigneeID *uint64
	if v, ok := p.OptionalUint("assigned_to"); ok {
		assigneeID = &v
	}

	updated, err := h.ticketService.Assign(ticket.ID, userID, assigneeID)
	if err != nil {
		respond.Fail(c, failureMessage(err), ticketPage)
		return
	}

	message := "Ticket assigned."
	if assigneeID == nil {
		message = "Assignment cleared."
	}
	respond.OK(c, message, dto.ToTicketDTO(*updated), ticketPage)
}

// DeleteTicket removes a ticket and its comments and attachments.
func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ticket, ok := middleware.GetTicket(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket not found in context"})
		return
	}
	deliverablePage := fmt.Sprintf("/deliverables/%d", ticket.DeliverableID)

	if err := h.ticketService.Delete(context.Background(), ticket.ID, userID); err != nil {
		respond.Fail(c, failureMessage(err), fmt.Sprintf("/tickets/%d", ticket.ID))
		return
	}

	respond.OK(c, "Ticket deleted.", nil, deliverablePage)
}

// ReorderTickets applies a new display order within a (deliverable,
// priority) group.
func (h *TicketHandler) ReorderTickets(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "deliverable_id", Type: params.Int, Required: true, Message: "Deliverable is required."},
		{Name: "priority_id", Type: params.Int, Required: true, Message: "Priority is required."},
		{Name: "ids", Type: params.IntList, Required: true, Message: "Order is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/projects")
		return
	}
	deliverablePage := fmt.Sprintf("/deliverables/%d", p.Uint("deliverable_id"))

	if err := h.ticketService.Reorder(p.Uint("deliverable_id"), p.Int("priority_id"), userID, p.UintList("ids")); err != nil {
		respond.Fail(c, failureMessage(err), deliverablePage)
		return
	}

	respond.OK(c, "Order updated.", nil, deliverablePage)
}

// MoveTicket transfers a ticket to another deliverable of the same project.
func (h *TicketHandler) MoveTicket(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ticket, ok := middleware.GetTicket(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket not found in context"})
		return
	}
	ticketPage := fmt.Sprintf("/tickets/%d", ticket.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "deliverable_id", Type: params.Int, Required: true, Message: "Destination deliverable is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, ticketPage)
		return
	}

	if err := h.ticketService.Move(ticket.ID, p.Uint("deliverable_id"), userID); err != nil {
		respond.Fail(c, failureMessage(err), ticketPage)
		return
	}

	respond.OK(c, "Ticket moved.", nil, ticketPage)
}
