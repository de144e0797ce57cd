package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/issue-tracker-api/internal/models"
	"github.com/yukikurage/issue-tracker-api/internal/utils"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Create is verified against the exact SQL so a schema drift (or an
// accidental update path on the append-only table) shows up here.
func TestActivityCreateAppendsRow(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	repo := NewActivityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `activity_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = repo.Create(&models.ActivityLog{
		UserID:     1,
		ProjectID:  2,
		EntityType: "ticket",
		EntityID:   3,
		Action:     "create",
		Metadata:   `{"title":"x"}`,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityListByProjectNewestFirst(t *testing.T) {
	f := newFixture(t)
	repo := NewActivityRepository(f.db)

	older := models.ActivityLog{
		UserID: f.owner.ID, ProjectID: f.project.ID,
		EntityType: "project", EntityID: f.project.ID, Action: "create",
		CreatedAt: time.Now().Add(-time.Hour),
	}
	newer := models.ActivityLog{
		UserID: f.developer.ID, ProjectID: f.project.ID,
		EntityType: "ticket", EntityID: 1, Action: "create",
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(&older))
	require.NoError(t, repo.Create(&newer))

	// An entry for another project stays out of the listing.
	require.NoError(t, repo.Create(&models.ActivityLog{
		UserID: f.owner.ID, ProjectID: f.project.ID + 1,
		EntityType: "project", EntityID: 99, Action: "create",
	}))

	entries, total, err := repo.ListByProject(f.project.ID, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, entries, 2)
	require.Equal(t, "ticket", entries[0].EntityType)
	require.Equal(t, "project", entries[1].EntityType)

	// Page boundaries apply; the total still counts everything in scope.
	page, total, err := repo.ListByProject(f.project.ID, utils.PaginationParams{Page: 2, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, page, 1)
	require.Equal(t, "project", page[0].EntityType)
}
