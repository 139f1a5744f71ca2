package repository

import (
	"context"
	"regexp"
	"testing"

	"shutterhub/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateBumpsCounter(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{Content: "Lovely light", PhotoID: 1, UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "photos" SET "comment_count"=comment_count + 1 WHERE id = $1`)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(ctx, comment)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), comment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_DeleteRootRemovesReplies(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "photog")
	fan := seedUser(t, db, "fan")
	photo := seedPhoto(t, db, owner.ID, nil)

	root := &models.Comment{PhotoID: photo.ID, UserID: fan.ID, Content: "root"}
	require.NoError(t, repo.Create(ctx, root))
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &models.Comment{PhotoID: photo.ID, UserID: owner.ID, Content: "reply", ParentID: &root.ID}))
	}
	other := &models.Comment{PhotoID: photo.ID, UserID: fan.ID, Content: "other"}
	require.NoError(t, repo.Create(ctx, other))

	removed, err := repo.Delete(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	remaining, err := repo.ListByPhoto(ctx, photo.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].ID)

	stored, err := NewPhotoRepository(db).GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CommentCount)

	_, err = repo.Delete(ctx, root.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
