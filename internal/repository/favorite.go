package repository

import (
	"context"

	"shutterhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRepository defines persistence operations for bookmarks.
type FavoriteRepository interface {
	Add(ctx context.Context, userID uint, ref models.ContentRef) (bool, error)
	Remove(ctx context.Context, userID uint, ref models.ContentRef) (bool, error)
	Exists(ctx context.Context, userID uint, ref models.ContentRef) (bool, error)
	List(ctx context.Context, userID uint, kind models.ContentKind, limit, offset int) ([]models.Favorite, int64, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new FavoriteRepository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Add bookmarks ref. It reports false when the bookmark already existed.
func (r *favoriteRepository) Add(ctx context.Context, userID uint, ref models.ContentRef) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Favorite{UserID: userID, ContentType: string(ref.Kind()), ContentID: ref.ID()})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID uint, ref models.ContentRef) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, string(ref.Kind()), ref.ID()).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Exists(ctx context.Context, userID uint, ref models.ContentRef) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, string(ref.Kind()), ref.ID()).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *favoriteRepository) List(ctx context.Context, userID uint, kind models.ContentKind, limit, offset int) ([]models.Favorite, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("content_type = ?", string(kind))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var favs []models.Favorite
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&favs).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return favs, total, nil
}
