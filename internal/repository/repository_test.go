package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fixture seeds one project with a member for every role and one
// deliverable created by the developer.
type fixture struct {
	db *gorm.DB

	owner     models.User
	admin     models.User
	developer models.User
	tester    models.User
	viewer    models.User

	project     models.Project
	deliverable models.Deliverable

	projects     ProjectRepository
	deliverables DeliverableRepository
	tickets      TicketRepository
	comments     CommentRepository
	attachments  AttachmentRepository
}

func setupTestDB(t *testing.T) *gorm.DB {
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

	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	f := &fixture{
		db:           db,
		projects:     NewProjectRepository(db),
		deliverables: NewDeliverableRepository(db),
		tickets:      NewTicketRepository(db),
		comments:     NewCommentRepository(db),
		attachments:  NewAttachmentRepository(db),
	}

	f.owner = f.createUser(t, "owner")
	f.admin = f.createUser(t, "admin")
	f.developer = f.createUser(t, "developer")
	f.tester = f.createUser(t, "tester")
	f.viewer = f.createUser(t, "viewer")

	f.project = models.Project{Name: "Tracker", OwnerID: f.owner.ID}
	member := models.ProjectMember{JoinedAt: time.Now()}
	require.NoError(t, f.projects.CreateWithOwner(&f.project, &member))

	f.addMember(t, f.admin, authz.RoleAdmin)
	f.addMember(t, f.developer, authz.RoleDeveloper)
	f.addMember(t, f.tester, authz.RoleTester)
	f.addMember(t, f.viewer, authz.RoleViewer)

	f.deliverable = models.Deliverable{
		ProjectID: f.project.ID,
		Name:      "Milestone 1",
		CreatorID: f.developer.ID,
	}
	require.NoError(t, f.deliverables.Create(&f.deliverable))

	return f
}

func (f *fixture) createUser(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		FirstName:    name,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) addMember(t *testing.T, user models.User, role authz.Role) {
	t.Helper()
	require.NoError(t, f.projects.AddMember(&models.ProjectMember{
		ProjectID: f.project.ID,
		UserID:    user.ID,
		Role:      role,
		JoinedAt:  time.Now(),
	}))
}

func (f *fixture) createTicket(t *testing.T, creatorID uint64, priorityID int) models.Ticket {
	t.Helper()
	ticket := models.Ticket{
		DeliverableID: f.deliverable.ID,
		Title:         "ticket",
		StatusID:      1,
		PriorityID:    priorityID,
		CreatorID:     creatorID,
	}
	require.NoError(t, f.tickets.Create(&ticket))
	return ticket
}

func (f *fixture) createAttachment(t *testing.T, ownerType string, ownerID, creatorID uint64, key string) models.Attachment {
	t.Helper()
	att := models.Attachment{
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		FileName:    "file.png",
		ContentType: "image/png",
		Size:        42,
		ObjectKey:   key,
		CreatorID:   creatorID,
	}
	require.NoError(t, f.attachments.Create(&att))
	return att
}

func (f *fixture) ticketOrders(t *testing.T, deliverableID uint64, priorityID int) map[uint64]int {
	t.Helper()
	var tickets []models.Ticket
	require.NoError(t, f.db.Where("deliverable_id = ? AND priority_id = ?", deliverableID, priorityID).Find(&tickets).Error)
	orders := make(map[uint64]int, len(tickets))
	for _, ticket := range tickets {
		orders[ticket.ID] = ticket.DisplayOrder
	}
	return orders
}
