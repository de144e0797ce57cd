package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/internal/dto"
	"github.com/yukikurage/issue-tracker-api/internal/middleware"
	"github.com/yukikurage/issue-tracker-api/internal/params"
	"github.com/yukikurage/issue-tracker-api/internal/respond"
	"github.com/yukikurage/issue-tracker-api/internal/services"
)

// DeliverableHandler coordinates deliverable HTTP handlers. Membership and
// role checks happen in the service layer against the deliverable's project.
type DeliverableHandler struct {
	deliverableService *services.DeliverableService
	ticketService      *services.TicketService
}

// NewDeliverableHandler creates a new DeliverableHandler.
func NewDeliverableHandler(deliverableService *services.DeliverableService, ticketService *services.TicketService) *DeliverableHandler {
	return &DeliverableHandler{
		deliverableService: deliverableService,
		ticketService:      ticketService,
	}
}

// GetDeliverable returns a deliverable and its tickets in display order.
func (h *DeliverableHandler) GetDeliverable(c *gin.Context) {
	deliverableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deliverable ID"})
		return
	}

	deliverable, err := h.deliverableService.Get(deliverableID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deliverable not found"})
		return
	}

	tickets, err := h.ticketService.ListByDeliverable(deliverableID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tickets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deliverable": dto.ToDeliverableDTO(*deliverable),
		"tickets":     dto.ToTicketDTOs(tickets),
	})
}

// CreateDeliverable creates a deliverable at the tail of the project's
// display order. Developer and above.
func (h *DeliverableHandler) CreateDeliverable(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "project_id", Type: params.Int, Required: true, Message: "Project is required."},
		{Name: "name", Type: params.String, Required: true, Message: "Deliverable name is required."},
		{Name: "description", Type: params.String},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/projects")
		return
	}
	projectPage := fmt.Sprintf("/projects/%d", p.Uint("project_id"))

	deliverable, err := h.deliverableService.Create(services.CreateDeliverableInput{
		ProjectID:   p.Uint("project_id"),
		Name:        p.String("name"),
		Description: p.String("description"),
		CreatorID:   userID,
	})
	if err != nil {
		respond.Fail(c, failureMessage(err), projectPage)
		return
	}

	respond.OK(c, "Deliverable created.", dto.ToDeliverableDTO(*deliverable), projectPage)
}

// UpdateDeliverable updates a deliverable's name or description.
func (h *DeliverableHandler) UpdateDeliverable(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	deliverableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respond.Fail(c, "Invalid deliverable.", "/projects")
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "name", Type: params.String},
		{Name: "description", Type: params.String},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/projects")
		return
	}

	input := services.UpdateDeliverableInput{}
	if p.Has("name") {
		v := p.String("name")
		input.Name = &v
	}
	if p.Has("description") {
		v := p.String("description")
		input.Description = &v
	}

	deliverable, err := h.deliverableService.Update(deliverableID, userID, input)
	if err != nil {
		respond.Fail(c, failureMessage(err), "/projects")
		return
	}

	projectPage := fmt.Sprintf("/projects/%d", deliverable.ProjectID)
	respond.OK(c, "Deliverable updated.", dto.ToDeliverableDTO(*deliverable), projectPage)
}

// DeleteDeliverable removes a deliverable and everything it owns.
func (h *DeliverableHandler) DeleteDeliverable(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	deliverableID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respond.Fail(c, "Invalid deliverable.", "/projects")
		return
	}

	// Resolve the project before the row disappears, for the redirect.
	redirectTo := "/projects"
	if deliverable, err := h.deliverableService.Get(deliverableID); err == nil {
		redirectTo = fmt.Sprintf("/projects/%d", deliverable.ProjectID)
	}

	if err := h.deliverableService.Delete(context.Background(), deliverableID, userID); err != nil {
		respond.Fail(c, failureMessage(err), redirectTo)
		return
	}

	respond.OK(c, "Deliverable deleted.", nil, redirectTo)
}

// ReorderDeliverables applies a new display order to a project's
// deliverables. The submitted list must cover exactly the project's
// deliverables or nothing changes.
func (h *DeliverableHandler) ReorderDeliverables(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "project_id", Type: params.Int, Required: true, Message: "Project is required."},
		{Name: "ids", Type: params.IntList, Required: true, Message: "Order is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/projects")
		return
	}
	projectPage := fmt.Sprintf("/projects/%d", p.Uint("project_id"))

	if err := h.deliverableService.Reorder(p.Uint("project_id"), userID, p.UintList("ids")); err != nil {
		respond.Fail(c, failureMessage(err), projectPage)
		return
	}

	respond.OK(c, "Order updated.", nil, projectPage)
}
