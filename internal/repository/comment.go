package repository

import (
	"context"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for photo comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPhoto(ctx context.Context, photoID uint) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts comment and bumps the photo's comment_count.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Photo{}).Where("id = ?", comment.PhotoID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, findErr(err, "Comment", id)
	}
	return &comment, nil
}

// ListByPhoto returns the visible comments of a photo, oldest first.
func (r *commentRepository) ListByPhoto(ctx context.Context, photoID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Where("photo_id = ? AND is_hidden = ?", photoID, false).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// Delete removes a comment together with its replies and returns how many rows went away.
func (r *commentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			return findErr(err, "Comment", id)
		}
		replies := tx.Where("parent_id = ?", id).Delete(&models.Comment{})
		if replies.Error != nil {
			return models.NewInternalError(replies.Error)
		}
		if err := tx.Delete(&models.Comment{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		removed = replies.RowsAffected + 1
		err := tx.Model(&models.Photo{}).Where("id = ?", comment.PhotoID).
			UpdateColumn("comment_count", gorm.Expr(
				"CASE WHEN comment_count >= ? THEN comment_count - ? ELSE 0 END", removed, removed)).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
