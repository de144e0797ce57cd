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

// CommentHandler coordinates comment HTTP handlers.
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// CreateComment adds a comment to a ticket. Tester and above; a tester only
// on their own tickets.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "ticket_id", Type: params.Int, Required: true, Message: "Ticket is required."},
		{Name: "body", Type: params.String, Required: true, Message: "Comment body is required."},
		{Name: "url", Type: params.String},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/projects")
		return
	}
	ticketPage := fmt.Sprintf("/tickets/%d", p.Uint("ticket_id"))

	comment, err := h.commentService.Create(services.CreateCommentInput{
		TicketID:  p.Uint("ticket_id"),
		Body:      p.String("body"),
		URL:       p.String("url"),
		CreatorID: userID,
	})
	if err != nil {
		respond.Fail(c, failureMessage(err), ticketPage)
		return
	}

	respond.OK(c, "Comment added.", dto.ToCommentDTO(*comment), ticketPage)
}

// ListComments returns a ticket's comments oldest first.
func (h *CommentHandler) ListComments(c *gin.Context) {
	ticket, ok := middleware.GetTicket(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ticket not found in context"})
		return
	}

	comments, err := h.commentService.ListByTicket(ticket.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": dto.ToCommentDTOs(comments),
	})
}

// DeleteComment removes a comment and its attachments. The creator, or a
// developer and above.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	commentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respond.Fail(c, "Invalid comment.", "/projects")
		return
	}

	if err := h.commentService.Delete(context.Background(), commentID, userID); err != nil {
		respond.Fail(c, failureMessage(err), "/projects")
		return
	}

	respond.OK(c, "Comment deleted.", nil, "/projects")
}
