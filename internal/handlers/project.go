package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/dto"
	"github.com/yukikurage/issue-tracker-api/internal/middleware"
	"github.com/yukikurage/issue-tracker-api/internal/params"
	"github.com/yukikurage/issue-tracker-api/internal/respond"
	"github.com/yukikurage/issue-tracker-api/internal/services"
	"github.com/yukikurage/issue-tracker-api/internal/utils"
)

// ProjectHandler coordinates project and membership HTTP handlers.
type ProjectHandler struct {
	projectService     *services.ProjectService
	deliverableService *services.DeliverableService
	activityService    *services.ActivityService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService, deliverableService *services.DeliverableService, activityService *services.ActivityService) *ProjectHandler {
	return &ProjectHandler{
		projectService:     projectService,
		deliverableService: deliverableService,
		activityService:    activityService,
	}
}

// ListProjects returns the projects the current user is a member of.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	memberships, err := h.projectService.ListForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": dto.ToMemberDTOs(memberships),
	})
}

// GetProject returns the project loaded by RequireProjectAccess, together
// with its deliverables in display order and the caller's role.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}
	member, _ := middleware.GetMember(c)

	deliverables, err := h.deliverableService.ListByProject(project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deliverables"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project":      dto.ToProjectDTO(project),
		"role":         member.Role,
		"deliverables": dto.ToDeliverableDTOs(deliverables),
	})
}

// CreateProject creates a project owned by the current user.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "name", Type: params.String, Required: true, Message: "Project name is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/projects")
		return
	}

	project, err := h.projectService.Create(p.String("name"), userID)
	if err != nil {
		respond.Fail(c, failureMessage(err), "/projects")
		return
	}

	respond.OK(c, "Project created.", dto.ToProjectDTO(*project), fmt.Sprintf("/projects/%d", project.ID))
}

// UpdateProject renames a project. Owner only.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}
	projectPage := fmt.Sprintf("/projects/%d", project.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "name", Type: params.String, Required: true, Message: "Project name is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, projectPage)
		return
	}

	updated, err := h.projectService.Update(project.ID, userID, p.String("name"))
	if err != nil {
		respond.Fail(c, failureMessage(err), projectPage)
		return
	}

	respond.OK(c, "Project updated.", dto.ToProjectDTO(*updated), projectPage)
}

// DeleteProject removes a project and everything it owns. Owner only.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}

	if err := h.projectService.Delete(context.Background(), project.ID, userID); err != nil {
		respond.Fail(c, failureMessage(err), fmt.Sprintf("/projects/%d", project.ID))
		return
	}

	respond.OK(c, "Project deleted.", nil, "/projects")
}

// ListMembers returns a project's members.
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}

	members, err := h.projectService.Members(project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": dto.ToMemberDTOs(members),
	})
}

// AddMember adds a user, looked up by email, to the project. Admin and above.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}
	membersPage := fmt.Sprintf("/projects/%d/members", project.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "email", Type: params.String, Required: true, Message: "Email is required."},
		{Name: "role", Type: params.String, Required: true, Message: "Role is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, membersPage)
		return
	}

	member, err := h.projectService.AddMember(project.ID, userID, p.String("email"), authz.Role(p.String("role")))
	if err != nil {
		respond.Fail(c, failureMessage(err), membersPage)
		return
	}

	respond.OK(c, "Member added.", dto.ToMemberDTO(*member), membersPage)
}

// RemoveMember removes a user from the project. Admin and above; the owner
// can never be removed.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}
	membersPage := fmt.Sprintf("/projects/%d/members", project.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "user_id", Type: params.Int, Required: true, Message: "User is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, membersPage)
		return
	}

	if err := h.projectService.RemoveMember(project.ID, userID, p.Uint("user_id")); err != nil {
		respond.Fail(c, failureMessage(err), membersPage)
		return
	}

	respond.OK(c, "Member removed.", nil, membersPage)
}

// ChangeMemberRole changes an existing member's role. Admin and above; the
// owner's role is fixed.
func (h *ProjectHandler) ChangeMemberRole(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}
	membersPage := fmt.Sprintf("/projects/%d/members", project.ID)

	p, verr := params.Extract(c, params.Schema{
		{Name: "user_id", Type: params.Int, Required: true, Message: "User is required."},
		{Name: "role", Type: params.String, Required: true, Message: "Role is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, membersPage)
		return
	}

	if err := h.projectService.ChangeMemberRole(project.ID, userID, p.Uint("user_id"), authz.Role(p.String("role"))); err != nil {
		respond.Fail(c, failureMessage(err), membersPage)
		return
	}

	respond.OK(c, "Role updated.", nil, membersPage)
}

// Activity returns a page of the project's activity log, newest first.
func (h *ProjectHandler) Activity(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Project not found in context"})
		return
	}

	pagination := utils.GetPaginationParams(c)

	entries, total, err := h.activityService.ListByProject(project.ID, pagination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": dto.ToActivityDTOs(entries),
		"pagination": utils.PaginationResponse{
			Page:  pagination.Page,
			Limit: pagination.Limit,
			Total: total,
		},
	})
}
