package repository

import (
	"context"
	"fmt"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// ContentRepository resolves ContentRef pointers to rows.
type ContentRepository interface {
	OwnerOf(ctx context.Context, ref models.ContentRef) (uint, error)
	Exists(ctx context.Context, ref models.ContentRef) (bool, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new ContentRepository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

// ownerColumns maps each content kind to its table and owning user column.
var ownerColumns = map[models.ContentKind][2]string{
	models.KindPhoto:   {"photos", "user_id"},
	models.KindComment: {"comments", "user_id"},
	models.KindTopic:   {"forum_topics", "user_id"},
	models.KindReply:   {"forum_replies", "user_id"},
	models.KindListing: {"marketplace_listings", "seller_id"},
	models.KindMessage: {"messages", "sender_id"},
	models.KindUser:    {"users", "id"},
}

// OwnerOf returns the user who owns the referenced content.
func (r *contentRepository) OwnerOf(ctx context.Context, ref models.ContentRef) (uint, error) {
	cols, ok := ownerColumns[ref.Kind()]
	if !ok {
		return 0, models.NewValidationError(fmt.Sprintf("content type %q has no owner", ref.Kind()))
	}
	var owners []uint
	err := r.db.WithContext(ctx).Table(cols[0]).Where("id = ?", ref.ID()).Limit(1).Pluck(cols[1], &owners).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(owners) == 0 {
		return 0, models.NewNotFoundError(string(ref.Kind()), ref.ID())
	}
	return owners[0], nil
}

func (r *contentRepository) Exists(ctx context.Context, ref models.ContentRef) (bool, error) {
	cols, ok := ownerColumns[ref.Kind()]
	table := cols[0]
	if !ok {
		if _, isConv := ref.(models.ConversationRef); !isConv {
			return false, nil
		}
		table = "conversations"
	}
	var count int64
	if err := r.db.WithContext(ctx).Table(table).Where("id = ?", ref.ID()).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
