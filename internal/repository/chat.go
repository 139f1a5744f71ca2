package repository

import (
	"context"
	"time"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines persistence operations for conversations and direct messages.
type ChatRepository interface {
	FindConversation(ctx context.Context, userA, userB uint, listingID *uint) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error)
	LastMessage(ctx context.Context, convID uint) (*models.Message, error)
	UnreadCount(ctx context.Context, convID, readerID uint) (int64, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, convID uint, limit, offset int) ([]models.Message, error)
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	MarkRead(ctx context.Context, convID, readerID uint) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// FindConversation looks up the conversation of a user pair about listingID. A nil listing
// matches only direct conversations.
func (r *chatRepository) FindConversation(ctx context.Context, userA, userB uint, listingID *uint) (*models.Conversation, error) {
	one, two := models.NormalizeParticipants(userA, userB)
	q := r.db.WithContext(ctx).Where("participant_one_id = ? AND participant_two_id = ?", one, two)
	if listingID == nil {
		q = q.Where("listing_id IS NULL")
	} else {
		q = q.Where("listing_id = ?", *listingID)
	}
	var conv models.Conversation
	if err := q.First(&conv).Error; err != nil {
		return nil, findErr(err, "Conversation", one)
	}
	return &conv, nil
}

func (r *chatRepository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	conv.ParticipantOneID, conv.ParticipantTwoID = models.NormalizeParticipants(conv.ParticipantOneID, conv.ParticipantTwoID)
	return writeErr(r.db.WithContext(ctx).Create(conv).Error, "conversation already exists")
}

func (r *chatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).Preload("Listing").First(&conv, id).Error; err != nil {
		return nil, findErr(err, "Conversation", id)
	}
	return &conv, nil
}

// ListConversations returns the user's conversations, most recent activity first.
func (r *chatRepository) ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := readDB(r.db).WithContext(ctx).
		Preload("Listing").
		Where("participant_one_id = ? OR participant_two_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Order("id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

func (r *chatRepository) LastMessage(ctx context.Context, convID uint) (*models.Message, error) {
	var msgs []models.Message
	err := readDB(r.db).WithContext(ctx).
		Where("conversation_id = ? AND is_hidden = ?", convID, false).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

func (r *chatRepository) UnreadCount(ctx context.Context, convID, readerID uint) (int64, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ? AND is_hidden = ?", convID, readerID, false, false).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// CreateMessage inserts msg and stamps the conversation's last_message_at.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", msg.ConversationID).
			UpdateColumns(map[string]interface{}{
				"last_message_at": msg.CreatedAt,
				"updated_at":      time.Now(),
			}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListMessages returns a page of visible messages, oldest first within the page. Offset
// counts back from the newest message.
func (r *chatRepository) ListMessages(ctx context.Context, convID uint, limit, offset int) ([]models.Message, error) {
	limit, offset = clampPage(limit, offset)
	var msgs []models.Message
	err := readDB(r.db).WithContext(ctx).
		Where("conversation_id = ? AND is_hidden = ?", convID, false).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, findErr(err, "Message", id)
	}
	return &msg, nil
}

// MarkRead flags every message the other participant sent as read.
func (r *chatRepository) MarkRead(ctx context.Context, convID, readerID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, readerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
