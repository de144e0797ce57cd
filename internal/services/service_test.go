package services

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/config"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeMailer records sent messages instead of delivering them.
type fakeMailer struct {
	sent []sentMail
}

type sentMail struct {
	To      string
	Subject string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject})
	return nil
}

// serviceEnv seeds one project with a member per role and one deliverable,
// wiring every service against an in-memory database and blob store.
type serviceEnv struct {
	db     *gorm.DB
	store  *storage.MemoryStore
	mailer *fakeMailer

	owner     models.User
	admin     models.User
	developer models.User
	tester    models.User
	viewer    models.User

	project     models.Project
	deliverable models.Deliverable

	projects     *ProjectService
	deliverables *DeliverableService
	tickets      *TicketService
	comments     *CommentService
	attachments  *AttachmentService
	activity     *ActivityService
}

func newServiceEnv(t *testing.T) *serviceEnv {
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

	cfg := &config.Config{
		MaxUploadBytes:   constants.DefaultMaxUploadBytes,
		AllowedMimeTypes: []string{"image/png", "text/plain"},
	}

	env := &serviceEnv{
		db:     db,
		store:  storage.NewMemoryStore(),
		mailer: &fakeMailer{},
	}

	env.activity = NewActivityService(activityRepo)
	env.projects = NewProjectService(projectRepo, userRepo, env.store, env.activity)
	env.deliverables = NewDeliverableService(deliverableRepo, projectRepo, env.store, env.activity)
	env.tickets = NewTicketService(ticketRepo, deliverableRepo, projectRepo, userRepo, env.store, env.mailer, env.activity)
	env.comments = NewCommentService(commentRepo, ticketRepo, projectRepo, env.store, env.activity)
	env.attachments = NewAttachmentService(attachmentRepo, commentRepo, ticketRepo, projectRepo, env.store, env.activity, cfg)

	env.owner = env.createUser(t, "owner")
	env.admin = env.createUser(t, "admin")
	env.developer = env.createUser(t, "developer")
	env.tester = env.createUser(t, "tester")
	env.viewer = env.createUser(t, "viewer")

	project, err := env.projects.Create("Tracker", env.owner.ID)
	require.NoError(t, err)
	env.project = *project

	env.addMember(t, env.admin, authz.RoleAdmin)
	env.addMember(t, env.developer, authz.RoleDeveloper)
	env.addMember(t, env.tester, authz.RoleTester)
	env.addMember(t, env.viewer, authz.RoleViewer)

	deliverable, err := env.deliverables.Create(CreateDeliverableInput{
		ProjectID: env.project.ID,
		Name:      "Milestone 1",
		CreatorID: env.developer.ID,
	})
	require.NoError(t, err)
	env.deliverable = *deliverable

	return env
}

func (env *serviceEnv) createUser(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		FirstName:    name,
	}
	require.NoError(t, env.db.Create(&user).Error)
	return user
}

func (env *serviceEnv) addMember(t *testing.T, user models.User, role authz.Role) {
	t.Helper()
	require.NoError(t, env.db.Create(&models.ProjectMember{
		ProjectID: env.project.ID,
		UserID:    user.ID,
		Role:      role,
		JoinedAt:  time.Now(),
	}).Error)
}

func bytesReader(s string) io.Reader {
	return strings.NewReader(s)
}

func (env *serviceEnv) createTicket(t *testing.T, creatorID uint64) *models.Ticket {
	t.Helper()
	ticket, err := env.tickets.Create(CreateTicketInput{
		DeliverableID: env.deliverable.ID,
		Title:         "a ticket",
		CreatorID:     creatorID,
	})
	require.NoError(t, err)
	return ticket
}
