//go:build integration

package seed

import (
	"context"
	"os"
	"strconv"
	"testing"

	"shutterhub/internal/config"
	"shutterhub/internal/database"
	"shutterhub/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// integrationDB connects to DATABASE_URL and applies the full schema, or skips.
func integrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	pc, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:          "test",
		DBHost:       pc.Host,
		DBPort:       strconv.Itoa(int(pc.Port)),
		DBUser:       pc.User,
		DBPassword:   pc.Password,
		DBName:       pc.Database,
		DBSSLMode:    "disable",
		DBSchemaMode: database.SchemaModeHybrid,
	}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, database.ApplySchema(context.Background(), db, cfg))
	return db
}

func TestIntegration_SeedPostgres(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()

	opts := Options{NumUsers: 10, NumPhotos: 20, NumTopics: 5, NumListings: 5, ShouldClean: true, SkipBcrypt: true, MaxDays: 30}
	summary, err := NewSeeder(db, opts).Seed(ctx)
	require.NoError(t, err)

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.EqualValues(t, summary.Photos, count(&models.Photo{}))
	assert.EqualValues(t, summary.Listings, count(&models.MarketplaceListing{}))
	categories := count(&models.ForumCategory{})
	assert.Positive(t, categories)

	// A second clean run rebuilds the same catalog.
	_, err = NewSeeder(db, opts).Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, categories, count(&models.ForumCategory{}))

	status, err := database.GetSchemaStatus(ctx, db, &config.Config{Env: "test", DBSchemaMode: database.SchemaModeSQL})
	require.NoError(t, err)
	assert.Empty(t, status.PendingMigrations)
	assert.Empty(t, status.Problem)
}
