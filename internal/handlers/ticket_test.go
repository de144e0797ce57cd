package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/config"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/database"
	"github.com/yukikurage/issue-tracker-api/internal/middleware"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/respond"
	"github.com/yukikurage/issue-tracker-api/internal/services"
	"github.com/yukikurage/issue-tracker-api/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type ticketTestEnv struct {
	db     *gorm.DB
	router *gin.Engine

	owner       models.User
	developer   models.User
	viewer      models.User
	project     models.Project
	deliverable models.Deliverable
}

func setupTicketTestEnv(t *testing.T) *ticketTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Deliverable{},
		&models.Ticket{},
		&models.Comment{},
		&models.Attachment{},
		&models.ActivityLog{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	deliverableRepo := repository.NewDeliverableRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	store := storage.NewMemoryStore()
	cfg := &config.Config{
		MaxUploadBytes:   constants.DefaultMaxUploadBytes,
		AllowedMimeTypes: []string{"image/png"},
	}
	// No SMTP host configured, so mail sending is a no-op.
	mailer := services.NewSMTPMailer(cfg)

	activityService := services.NewActivityService(activityRepo)
	ticketService := services.NewTicketService(ticketRepo, deliverableRepo, projectRepo, userRepo, store, mailer, activityService)
	attachmentService := services.NewAttachmentService(attachmentRepo, commentRepo, ticketRepo, projectRepo, store, activityService, cfg)

	ticketHandler := NewTicketHandler(ticketService, attachmentService)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	sessionStore := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))
	r.HandleMethodNotAllowed = true
	r.NoMethod(respond.InvalidMethod)

	// Test-only login endpoint: establishes a session for the given user.
	r.GET("/test/login/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		require.NoError(t, err)
		session := sessions.Default(c)
		session.Set(constants.ContextKeyUserID, id)
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})

	tickets := r.Group("/api/tickets")
	tickets.Use(middleware.RequireAuth())
	{
		tickets.POST("", ticketHandler.CreateTicket)
		tickets.GET("/:id", middleware.RequireTicketAccess(), ticketHandler.GetTicket)
		tickets.POST("/:id/update", middleware.RequireTicketAccess(), ticketHandler.UpdateTicket)
		tickets.POST("/:id/delete", middleware.RequireTicketAccess(), ticketHandler.DeleteTicket)
	}

	env := &ticketTestEnv{db: db, router: r}

	env.owner = env.seedUser(t, "owner")
	env.developer = env.seedUser(t, "developer")
	env.viewer = env.seedUser(t, "viewer")

	env.project = models.Project{Name: "Tracker", OwnerID: env.owner.ID}
	ownerMember := models.ProjectMember{JoinedAt: time.Now()}
	require.NoError(t, projectRepo.CreateWithOwner(&env.project, &ownerMember))

	for _, m := range []struct {
		user models.User
		role authz.Role
	}{
		{env.developer, authz.RoleDeveloper},
		{env.viewer, authz.RoleViewer},
	} {
		require.NoError(t, projectRepo.AddMember(&models.ProjectMember{
			ProjectID: env.project.ID,
			UserID:    m.user.ID,
			Role:      m.role,
			JoinedAt:  time.Now(),
		}))
	}

	env.deliverable = models.Deliverable{ProjectID: env.project.ID, Name: "Milestone 1", CreatorID: env.developer.ID}
	require.NoError(t, deliverableRepo.Create(&env.deliverable))

	return env
}

func (env *ticketTestEnv) seedUser(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{Email: name + "@example.com", PasswordHash: "x", FirstName: name}
	require.NoError(t, env.db.Create(&user).Error)
	return user
}

// loginAs returns session cookies for the given user.
func (env *ticketTestEnv) loginAs(t *testing.T, userID uint64) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/test/login/%d", userID), nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func (env *ticketTestEnv) postFormAs(t *testing.T, cookies []*http.Cookie, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestTicketHandler_CreateAppliesDefaults(t *testing.T) {
	env := setupTicketTestEnv(t)
	cookies := env.loginAs(t, env.developer.ID)

	w := env.postFormAs(t, cookies, "/api/tickets", url.Values{
		"deliverable_id": {strconv.FormatUint(env.deliverable.ID, 10)},
		"title":          {"First bug"},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var envelope respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)

	data := envelope.Data.(map[string]interface{})
	require.Equal(t, "First bug", data["title"])
	require.EqualValues(t, 1, data["status_id"])
	require.EqualValues(t, 3, data["priority_id"])
	require.EqualValues(t, 0, data["display_order"])
}

func TestTicketHandler_CreateDeniedForViewer(t *testing.T) {
	env := setupTicketTestEnv(t)
	cookies := env.loginAs(t, env.viewer.ID)

	w := env.postFormAs(t, cookies, "/api/tickets", url.Values{
		"deliverable_id": {strconv.FormatUint(env.deliverable.ID, 10)},
		"title":          {"Not allowed"},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var envelope respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.Equal(t, "You do not have permission to perform this action.", envelope.Message)
}

func TestTicketHandler_CreateMissingTitle(t *testing.T) {
	env := setupTicketTestEnv(t)
	cookies := env.loginAs(t, env.developer.ID)

	w := env.postFormAs(t, cookies, "/api/tickets", url.Values{
		"deliverable_id": {strconv.FormatUint(env.deliverable.ID, 10)},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var envelope respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.Equal(t, "Title is required.", envelope.Message)
}

func TestTicketHandler_InvalidMethod(t *testing.T) {
	env := setupTicketTestEnv(t)
	cookies := env.loginAs(t, env.developer.ID)

	w := env.postFormAs(t, cookies, "/api/tickets", url.Values{
		"deliverable_id": {strconv.FormatUint(env.deliverable.ID, 10)},
		"title":          {"A ticket"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var envelope respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	ticketID := uint64(data["id"].(float64))

	// GET against a mutating route is rejected with the fixed message.
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/tickets/%d/update", ticketID), nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.Equal(t, "Invalid request method.", envelope.Message)
}

func TestTicketHandler_AccessRequiresMembership(t *testing.T) {
	env := setupTicketTestEnv(t)
	outsider := env.seedUser(t, "outsider")

	devCookies := env.loginAs(t, env.developer.ID)
	w := env.postFormAs(t, devCookies, "/api/tickets", url.Values{
		"deliverable_id": {strconv.FormatUint(env.deliverable.ID, 10)},
		"title":          {"Members only"},
	})
	var envelope respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	ticketID := uint64(data["id"].(float64))

	// The outsider gets a 404, not a 403, so existence is not leaked.
	outsiderCookies := env.loginAs(t, outsider.ID)
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/tickets/%d", ticketID), nil)
	for _, ck := range outsiderCookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketHandler_UnauthenticatedIsRejected(t *testing.T) {
	env := setupTicketTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var envelope respond.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
}
