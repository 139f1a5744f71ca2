package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"shutterhub/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantUsername string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "user_id", "username"}).AddRow(7, 1, "mika")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE user_id = $1 ORDER BY "profiles"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantUsername: "mika",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE user_id = $1 ORDER BY "profiles"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			profile, err := repo.GetProfile(ctx, tt.userID)
			if tt.wantCode != "" {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, models.ErrorCode(err))
				assert.Nil(t, profile)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantUsername, profile.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_ReserveUpload_UsesConditionalUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE profiles`)).
		WithArgs("2026-03-01", "2026-03-01", sqlmock.AnyArg(), 5, "2026-03-01", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE profiles`)).
		WithArgs("2026-03-01", "2026-03-01", sqlmock.AnyArg(), 5, "2026-03-01", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ReserveUpload(context.Background(), 5, "2026-03-01", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ReserveUpload(context.Background(), 5, "2026-03-01", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateRejectsDuplicates(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "mika")

	err := repo.Create(ctx, &models.User{Email: "other@example.com", Password: "x"}, &models.Profile{Username: "mika"})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	err = repo.Create(ctx, &models.User{Email: "mika@example.com", Password: "x"}, &models.Profile{Username: "other"})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestUserRepository_ReserveUploadQuotaWindow(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "quota")

	for i := 0; i < 3; i++ {
		ok, err := repo.ReserveUpload(ctx, user.ID, "2026-03-01", 3)
		require.NoError(t, err)
		assert.True(t, ok, "upload %d should fit", i+1)
	}
	ok, err := repo.ReserveUpload(ctx, user.ID, "2026-03-01", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleaseUpload(ctx, user.ID, "2026-03-01"))
	ok, err = repo.ReserveUpload(ctx, user.ID, "2026-03-01", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// A new day restarts the counter.
	ok, err = repo.ReserveUpload(ctx, user.ID, "2026-03-02", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	profile, err := repo.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.DailyUploadCount)
	assert.Equal(t, "2026-03-02", profile.UploadCountDay)
}

func TestUserRepository_LiftExpiredSuspension(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "sleeper")
	now := utcNow()

	future := now.Add(time.Hour)
	require.NoError(t, repo.Suspend(ctx, user.ID, &future))
	lifted, err := repo.LiftExpiredSuspension(ctx, user.ID, now)
	require.NoError(t, err)
	assert.False(t, lifted)

	past := now.Add(-time.Hour)
	require.NoError(t, repo.Suspend(ctx, user.ID, &past))
	lifted, err = repo.LiftExpiredSuspension(ctx, user.ID, now)
	require.NoError(t, err)
	assert.True(t, lifted)

	profile, err := repo.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, profile.IsSuspended)
	assert.Nil(t, profile.SuspendedUntil)
}

func TestUserRepository_Roles(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := seedUser(t, db, "mod")

	require.NoError(t, repo.GrantRole(ctx, user.ID, models.RoleModerator))
	require.NoError(t, repo.GrantRole(ctx, user.ID, models.RoleModerator))

	roles, err := repo.ListRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleModerator}, roles)

	has, err := repo.HasRole(ctx, user.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.RevokeRole(ctx, user.ID, models.RoleModerator))
	has, err = repo.HasRole(ctx, user.ID, models.RoleModerator)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestUserRepository_ProfileStats(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	rater := seedUser(t, db, "rater")

	p1 := seedPhoto(t, db, owner.ID, nil)
	p2 := seedPhoto(t, db, owner.ID, nil)
	seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.IsHidden = true })

	ratings := NewRatingRepository(db)
	_, err := ratings.Upsert(ctx, p1.ID, rater.ID, 5)
	require.NoError(t, err)
	_, err = ratings.Upsert(ctx, p2.ID, rater.ID, 2)
	require.NoError(t, err)

	stats, err := repo.ProfileStats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.PhotoCount)
	assert.InDelta(t, 3.5, stats.AverageRating, 0.001)
}
