package repository

import (
	"context"
	"time"

	"shutterhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingStats is the recomputed aggregate of a photo's ratings.
type RatingStats struct {
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// RatingRepository defines persistence operations for photo ratings.
type RatingRepository interface {
	Upsert(ctx context.Context, photoID, userID uint, rating int) (*RatingStats, error)
	Get(ctx context.Context, photoID, userID uint) (*models.PhotoRating, error)
}

type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a new RatingRepository
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Upsert stores the user's rating, replacing any previous one, and recomputes the photo's
// average_rating and rating_count from the ratings table in the same transaction.
func (r *ratingRepository) Upsert(ctx context.Context, photoID, userID uint, rating int) (*RatingStats, error) {
	stats := &RatingStats{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.PhotoRating{PhotoID: photoID, UserID: userID, Rating: rating}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "photo_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"rating":     rating,
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		var agg struct {
			Avg   float64
			Count int
		}
		err = tx.Model(&models.PhotoRating{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Where("photo_id = ?", photoID).
			Scan(&agg).Error
		if err != nil {
			return err
		}
		stats.AverageRating = agg.Avg
		stats.RatingCount = agg.Count

		return tx.Model(&models.Photo{}).Where("id = ?", photoID).Updates(map[string]interface{}{
			"average_rating": agg.Avg,
			"rating_count":   agg.Count,
		}).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}

func (r *ratingRepository) Get(ctx context.Context, photoID, userID uint) (*models.PhotoRating, error) {
	var rating models.PhotoRating
	err := r.db.WithContext(ctx).Where("photo_id = ? AND user_id = ?", photoID, userID).First(&rating).Error
	if err != nil {
		return nil, findErr(err, "Rating", photoID)
	}
	return &rating, nil
}
