package repository

import (
	"context"
	"time"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// TopicFilter narrows a topic listing.
type TopicFilter struct {
	CategoryID    uint
	UserID        uint
	IncludeHidden bool
}

// ForumRepository defines persistence operations for categories, topics and replies.
type ForumRepository interface {
	ListCategories(ctx context.Context) ([]models.ForumCategory, error)
	GetCategory(ctx context.Context, id uint) (*models.ForumCategory, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.ForumCategory, error)
	CreateCategory(ctx context.Context, category *models.ForumCategory) error
	UpdateCategory(ctx context.Context, category *models.ForumCategory) error
	DeleteCategory(ctx context.Context, id uint) error
	CategoryUsage(ctx context.Context, id uint) (topics int64, children int64, err error)

	CreateTopic(ctx context.Context, topic *models.ForumTopic) error
	GetTopic(ctx context.Context, id uint) (*models.ForumTopic, error)
	ListTopics(ctx context.Context, filter TopicFilter, limit, offset int) ([]models.ForumTopic, int64, error)
	UpdateTopic(ctx context.Context, id uint, fields map[string]interface{}) error
	DeleteTopic(ctx context.Context, id uint) error
	IncrementTopicViews(ctx context.Context, id uint) error

	CreateReply(ctx context.Context, reply *models.ForumReply) error
	GetReply(ctx context.Context, id uint) (*models.ForumReply, error)
	ListReplies(ctx context.Context, topicID uint, limit, offset int) ([]models.ForumReply, int64, error)
	UpdateReplyContent(ctx context.Context, id uint, content string) error
	DeleteReply(ctx context.Context, id uint) error
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository creates a new ForumRepository
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) ListCategories(ctx context.Context) ([]models.ForumCategory, error) {
	var categories []models.ForumCategory
	err := readDB(r.db).WithContext(ctx).Order("sort_order ASC").Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *forumRepository) GetCategory(ctx context.Context, id uint) (*models.ForumCategory, error) {
	var category models.ForumCategory
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, findErr(err, "Category", id)
	}
	return &category, nil
}

func (r *forumRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.ForumCategory, error) {
	var category models.ForumCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, findErr(err, "Category", slug)
	}
	return &category, nil
}

func (r *forumRepository) CreateCategory(ctx context.Context, category *models.ForumCategory) error {
	return writeErr(r.db.WithContext(ctx).Create(category).Error, "category slug already in use")
}

// UpdateCategory saves category and rewrites the text category of its topics so the slug
// mirror stays in step.
func (r *forumRepository) UpdateCategory(ctx context.Context, category *models.ForumCategory) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ForumCategory{}).Where("id = ?", category.ID).Updates(map[string]interface{}{
			"parent_id":   category.ParentID,
			"name":        category.Name,
			"slug":        category.Slug,
			"description": category.Description,
			"color":       category.Color,
			"icon":        category.Icon,
			"sort_order":  category.SortOrder,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Category", category.ID)
		}
		return tx.Model(&models.ForumTopic{}).
			Where("category_id = ? AND category <> ?", category.ID, category.Slug).
			Update("category", category.Slug).Error
	})
	return writeErr(err, "category slug already in use")
}

func (r *forumRepository) DeleteCategory(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.ForumCategory{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", id)
	}
	return nil
}

// CategoryUsage counts the topics filed under and the child categories of a category.
func (r *forumRepository) CategoryUsage(ctx context.Context, id uint) (int64, int64, error) {
	var topics, children int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.ForumTopic{}).Where("category_id = ?", id).Count(&topics).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	if err := db.Model(&models.ForumCategory{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return topics, children, nil
}

func (r *forumRepository) CreateTopic(ctx context.Context, topic *models.ForumTopic) error {
	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) GetTopic(ctx context.Context, id uint) (*models.ForumTopic, error) {
	var topic models.ForumTopic
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("CategoryRow").
		First(&topic, id).Error
	if err != nil {
		return nil, findErr(err, "Topic", id)
	}
	return &topic, nil
}

// ListTopics returns pinned topics first, then by latest activity.
func (r *forumRepository) ListTopics(ctx context.Context, filter TopicFilter, limit, offset int) ([]models.ForumTopic, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Model(&models.ForumTopic{})
	if !filter.IncludeHidden {
		q = q.Where("is_hidden = ?", false)
	}
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var topics []models.ForumTopic
	err := q.Preload("Author").
		Order("is_pinned DESC").
		Order("COALESCE(last_reply_at, created_at) DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&topics).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return topics, total, nil
}

func (r *forumRepository) UpdateTopic(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.ForumTopic{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Topic", id)
	}
	return nil
}

// DeleteTopic removes a topic and its replies.
func (r *forumRepository) DeleteTopic(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_id = ?", id).Delete(&models.ForumReply{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.ForumTopic{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Topic", id)
		}
		return nil
	})
}

func (r *forumRepository) IncrementTopicViews(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ForumTopic{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// CreateReply inserts reply and bumps the topic's reply_count and last_reply_at.
func (r *forumRepository) CreateReply(ctx context.Context, reply *models.ForumReply) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.ForumTopic{}).Where("id = ?", reply.TopicID).UpdateColumns(map[string]interface{}{
			"reply_count":   gorm.Expr("reply_count + 1"),
			"last_reply_at": reply.CreatedAt,
		}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) GetReply(ctx context.Context, id uint) (*models.ForumReply, error) {
	var reply models.ForumReply
	if err := r.db.WithContext(ctx).Preload("Author").First(&reply, id).Error; err != nil {
		return nil, findErr(err, "Reply", id)
	}
	return &reply, nil
}

func (r *forumRepository) ListReplies(ctx context.Context, topicID uint, limit, offset int) ([]models.ForumReply, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Model(&models.ForumReply{}).
		Where("topic_id = ? AND is_hidden = ?", topicID, false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var replies []models.ForumReply
	err := q.Preload("Author").Order("created_at ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&replies).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return replies, total, nil
}

func (r *forumRepository) UpdateReplyContent(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&models.ForumReply{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":    content,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Reply", id)
	}
	return nil
}

// DeleteReply removes a reply and decrements the topic's reply_count.
func (r *forumRepository) DeleteReply(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reply models.ForumReply
		if err := tx.First(&reply, id).Error; err != nil {
			return findErr(err, "Reply", id)
		}
		if err := tx.Delete(&models.ForumReply{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		err := tx.Model(&models.ForumTopic{}).Where("id = ?", reply.TopicID).
			UpdateColumn("reply_count", gorm.Expr("CASE WHEN reply_count > 0 THEN reply_count - 1 ELSE 0 END")).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}
