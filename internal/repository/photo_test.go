package repository

import (
	"context"
	"testing"

	"shutterhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoRepository_ListFiltersAndSorts(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "lister")

	a := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "street"; p.LikeCount = 5; p.CameraBrand = "Fujifilm" })
	b := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "street"; p.LikeCount = 9 })
	seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "street"; p.IsHidden = true })
	seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "portrait" })
	require.NoError(t, db.Create(&models.PhotoTag{PhotoID: a.ID, Tag: "night"}).Error)

	photos, total, err := repo.List(ctx, PhotoFilter{Category: "street", Sort: models.PhotoSortPopular}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, photos, 2)
	assert.Equal(t, b.ID, photos[0].ID)
	assert.Equal(t, a.ID, photos[1].ID)

	photos, _, err = repo.List(ctx, PhotoFilter{Tag: "NIGHT"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, a.ID, photos[0].ID)

	photos, _, err = repo.List(ctx, PhotoFilter{CameraBrand: "fujifilm"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, a.ID, photos[0].ID)
}

func TestPhotoRepository_LikeIsIdempotent(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "liked")
	fan := seedUser(t, db, "fan")
	photo := seedPhoto(t, db, owner.ID, nil)

	created, err := repo.Like(ctx, photo.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Like(ctx, photo.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)

	removed, err := repo.Unlike(ctx, photo.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Unlike(ctx, photo.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err = repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)
}

func TestPhotoRepository_DeleteCascade(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "cascade")
	other := seedUser(t, db, "other")
	photo := seedPhoto(t, db, owner.ID, nil)

	require.NoError(t, NewCommentRepository(db).Create(ctx, &models.Comment{PhotoID: photo.ID, UserID: other.ID, Content: "nice"}))
	_, err := NewRatingRepository(db).Upsert(ctx, photo.ID, other.ID, 4)
	require.NoError(t, err)
	_, err = repo.Like(ctx, photo.ID, other.ID)
	require.NoError(t, err)
	_, err = NewFavoriteRepository(db).Add(ctx, other.ID, models.PhotoRef{PhotoID: photo.ID})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.PhotoTag{PhotoID: photo.ID, Tag: "x"}).Error)

	require.NoError(t, repo.DeleteCascade(ctx, photo.ID))

	for _, model := range []interface{}{&models.Comment{}, &models.PhotoRating{}, &models.PhotoLike{}, &models.PhotoTag{}, &models.Favorite{}, &models.Photo{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T should be empty", model)
	}

	err = repo.DeleteCascade(ctx, photo.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPhotoRepository_SetFeaturedAppends(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "featured")
	first := seedPhoto(t, db, owner.ID, nil)
	second := seedPhoto(t, db, owner.ID, nil)

	require.NoError(t, repo.SetFeatured(ctx, first.ID, true))
	require.NoError(t, repo.SetFeatured(ctx, second.ID, true))

	featured, err := repo.ListFeatured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, first.ID, featured[0].ID)
	assert.Equal(t, 1, featured[0].FeaturedOrder)
	assert.Equal(t, 2, featured[1].FeaturedOrder)

	require.NoError(t, repo.SetFeaturedOrder(ctx, second.ID, 0))
	featured, err = repo.ListFeatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, featured[0].ID)

	err = repo.SetFeaturedOrder(ctx, 999, 3)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPhotoRepository_SimilarCandidates(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "similar")

	base := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.CameraBrand = "Canon"; p.Category = "landscape" })
	brand := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.CameraBrand = "canon" })
	cat := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "landscape" })
	seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.CameraBrand = "Canon"; p.IsHidden = true })
	seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.CameraBrand = "Nikon"; p.Category = "macro" })

	got, err := repo.SimilarCandidates(ctx, base, 50)
	require.NoError(t, err)
	ids := []uint{}
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []uint{brand.ID, cat.ID}, ids)

	none, err := repo.SimilarCandidates(ctx, &models.Photo{ID: 99}, 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPhotoRepository_SimilarCandidates_PoolKeepsBestMatches(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "pool")

	target := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.CameraBrand = "Sony"; p.Category = "風景" })
	both := seedPhoto(t, db, owner.ID, func(p *models.Photo) {
		p.CameraBrand = "sony"
		p.Category = "風景"
		p.AverageRating = 1
	})
	brandOnly := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.CameraBrand = "SONY"; p.AverageRating = 2 })
	for i := 0; i < 200; i++ {
		seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "風景"; p.AverageRating = 5 })
	}

	got, err := repo.SimilarCandidates(ctx, target, 200)
	require.NoError(t, err)
	require.Len(t, got, 200)
	assert.Equal(t, both.ID, got[0].ID, "brand and category match leads the pool")
	assert.Equal(t, brandOnly.ID, got[1].ID, "brand match outranks category-only matches")
	assert.Equal(t, float64(5), got[2].AverageRating)
}

func TestPhotoRepository_SimilarCandidates_CategoryIgnoresCase(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewPhotoRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "casing")

	target := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "Landscape" })
	lower := seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "landscape" })
	seedPhoto(t, db, owner.ID, func(p *models.Photo) { p.Category = "street" })

	got, err := repo.SimilarCandidates(ctx, target, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lower.ID, got[0].ID)
}
