package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/dto"
	"github.com/yukikurage/issue-tracker-api/internal/middleware"
	"github.com/yukikurage/issue-tracker-api/internal/respond"
	"github.com/yukikurage/issue-tracker-api/internal/services"
)

// AttachmentHandler coordinates attachment HTTP handlers. Uploads are
// multipart POSTs; everything else follows the usual form-encoded contract.
type AttachmentHandler struct {
	attachmentService *services.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
	}
}

// Upload stores a file against a ticket or comment. Size and MIME type are
// validated before anything is written.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	ownerType := c.PostForm("owner_type")
	if ownerType == "" {
		ownerType = constants.OwnerTypeTicket
	}
	ownerID, err := strconv.ParseUint(c.PostForm("owner_id"), 10, 64)
	if err != nil {
		respond.Fail(c, "Attachment target is required.", "/projects")
		return
	}
	redirectTo := attachmentRedirect(ownerType, ownerID)

	header, err := c.FormFile("file")
	if err != nil {
		respond.Fail(c, "A file is required.", redirectTo)
		return
	}

	file, err := header.Open()
	if err != nil {
		respond.Fail(c, "Failed to read the uploaded file.", redirectTo)
		return
	}
	defer file.Close()

	att, err := h.attachmentService.Upload(c.Request.Context(), services.UploadInput{
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
		ActorID:     userID,
	})
	if err != nil {
		respond.Fail(c, failureMessage(err), redirectTo)
		return
	}

	respond.OK(c, "File uploaded.", dto.ToAttachmentDTO(*att), redirectTo)
}

// Download streams an attachment's content to any member of its project.
func (h *AttachmentHandler) Download(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	attachmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attachment ID"})
		return
	}

	att, rc, err := h.attachmentService.Open(c.Request.Context(), attachmentID, userID)
	if err != nil {
		// 404 for denied as well, to avoid leaking existence.
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
	c.DataFromReader(http.StatusOK, att.Size, att.ContentType, rc, nil)
}

// Delete removes an attachment row and its stored object.
func (h *AttachmentHandler) Delete(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	attachmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respond.Fail(c, "Invalid attachment.", "/projects")
		return
	}

	if err := h.attachmentService.Delete(context.Background(), attachmentID, userID); err != nil {
		respond.Fail(c, failureMessage(err), "/projects")
		return
	}

	respond.OK(c, "Attachment deleted.", nil, "/projects")
}

func attachmentRedirect(ownerType string, ownerID uint64) string {
	if ownerType == constants.OwnerTypeTicket {
		return fmt.Sprintf("/tickets/%d", ownerID)
	}
	return "/projects"
}
