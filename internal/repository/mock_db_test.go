package repository

import (
	"context"
	"testing"
	"time"

	"shutterhub/internal/database"
	"shutterhub/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a migrated in-memory database. A single connection keeps every
// statement on the same in-memory schema.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Email: username + "@example.com", Password: "hash"}
	profile := &models.Profile{Username: username, DisplayName: username}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user, profile))
	return user
}

func seedPhoto(t *testing.T, db *gorm.DB, ownerID uint, mutate func(p *models.Photo)) *models.Photo {
	t.Helper()
	photo := &models.Photo{
		UserID:   ownerID,
		Title:    "photo",
		ImageURL: "https://cdn.test/photos/x.jpg",
	}
	if mutate != nil {
		mutate(photo)
	}
	require.NoError(t, db.Create(photo).Error)
	return photo
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
