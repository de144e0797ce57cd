package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/dto"
	"github.com/yukikurage/issue-tracker-api/internal/middleware"
	"github.com/yukikurage/issue-tracker-api/internal/params"
	"github.com/yukikurage/issue-tracker-api/internal/respond"
	"github.com/yukikurage/issue-tracker-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup registers a new user and logs them in.
func (h *AuthHandler) Signup(c *gin.Context) {
	p, verr := params.Extract(c, params.Schema{
		{Name: "email", Type: params.String, Required: true, Message: "Email is required."},
		{Name: "password", Type: params.String, Required: true, Message: "Password is required."},
		{Name: "first_name", Type: params.String},
		{Name: "last_name", Type: params.String},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/signup")
		return
	}

	user, err := h.authService.Signup(services.SignupInput{
		Email:     p.String("email"),
		Password:  p.String("password"),
		FirstName: p.String("first_name"),
		LastName:  p.String("last_name"),
	})
	if err != nil {
		respond.Fail(c, signupMessage(err), "/signup")
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		respond.Fail(c, "Failed to start session.", "/login")
		return
	}

	respond.OK(c, "Account created.", dto.ToUserDTO(*user), "/projects")
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	p, verr := params.Extract(c, params.Schema{
		{Name: "email", Type: params.String, Required: true, Message: "Email is required."},
		{Name: "password", Type: params.String, Required: true, Message: "Password is required."},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/login")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    p.String("email"),
		Password: p.String("password"),
	})
	if err != nil {
		respond.Fail(c, "Invalid email or password.", "/login")
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		respond.Fail(c, "Failed to start session.", "/login")
		return
	}

	respond.OK(c, "Logged in.", dto.ToUserDTO(*user), "/projects")
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respond.Fail(c, "Failed to log out.", "/")
		return
	}

	respond.OK(c, "Logged out.", nil, "/login")
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateProfile updates the authenticated user's own profile fields.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		respond.LoginRequired(c)
		return
	}

	p, verr := params.Extract(c, params.Schema{
		{Name: "first_name", Type: params.String},
		{Name: "last_name", Type: params.String},
	})
	if verr != nil {
		respond.Fail(c, verr.Message, "/profile")
		return
	}

	input := services.UpdateProfileInput{}
	if p.Has("first_name") {
		v := p.String("first_name")
		input.FirstName = &v
	}
	if p.Has("last_name") {
		v := p.String("last_name")
		input.LastName = &v
	}

	user, err := h.authService.UpdateProfile(userID, input)
	if err != nil {
		respond.Fail(c, failureMessage(err), "/profile")
		return
	}

	respond.OK(c, "Profile updated.", dto.ToUserDTO(*user), "/profile")
}

// Messages returns and clears the pending flash messages. A page polls this
// after a redirect; a refresh returns an empty list.
func (h *AuthHandler) Messages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"messages": respond.TakeFlashes(c),
	})
}

func signupMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return "That email address is already registered."
	case errors.Is(err, services.ErrEmailRequired):
		return "Email is required."
	case errors.Is(err, services.ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters.", constants.MinPasswordLength)
	default:
		return "Something went wrong. Please try again."
	}
}
