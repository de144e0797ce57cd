package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/database"
	"github.com/yukikurage/issue-tracker-api/internal/models"
)

// RequireTicketAccess checks if the user has access to the ticket named by
// the :id route parameter. The user must be a member of the project owning
// the ticket's deliverable; the role is re-derived per request.
func RequireTicketAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		ticketIDStr := c.Param("id")
		ticketID, err := strconv.ParseUint(ticketIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid ticket ID",
			})
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		var ticket models.Ticket
		if err := database.GetDB().
			Preload("Creator").
			Preload("Assignee").
			Preload("Deliverable").
			First(&ticket, ticketID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Ticket not found",
			})
			c.Abort()
			return
		}

		var member models.ProjectMember
		err = database.GetDB().
			Where("project_id = ? AND user_id = ?", ticket.Deliverable.ProjectID, userID).
			First(&member).Error
		if err != nil {
			// Return 404 instead of 403 to avoid leaking ticket existence
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Ticket not found",
			})
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTicket, ticket)
		c.Set(constants.ContextKeyMember, member)
		c.Next()
	}
}

// GetTicket retrieves the ticket loaded by RequireTicketAccess
func GetTicket(c *gin.Context) (models.Ticket, bool) {
	v, exists := c.Get(constants.ContextKeyTicket)
	if !exists {
		return models.Ticket{}, false
	}
	ticket, ok := v.(models.Ticket)
	return ticket, ok
}
