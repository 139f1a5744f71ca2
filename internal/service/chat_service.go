package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/notifications"
	"shutterhub/internal/repository"
)

const (
	maxMessageLen      = 4000
	messagePreviewLen  = 80
	defaultMessagePage = 50
)

// ConversationPublisher pushes realtime envelopes to a conversation channel.
type ConversationPublisher interface {
	PublishConversation(ctx context.Context, conversationID uint, envelope []byte) error
}

// PresenceChecker reports whether a user is connected.
type PresenceChecker interface {
	IsOnline(userID uint) bool
}

// StartConversationInput opens (or reuses) a conversation with another user, optionally
// about a listing.
type StartConversationInput struct {
	UserID      uint
	OtherUserID uint
	ListingID   *uint
}

// SendMessageInput posts a message to a conversation.
type SendMessageInput struct {
	UserID         uint
	ConversationID uint
	Content        string
}

// ChatService runs two-party direct messages.
type ChatService struct {
	chat      repository.ChatRepository
	users     repository.UserRepository
	listings  repository.ListingRepository
	notifier  NotificationSender
	publisher ConversationPublisher
	presence  PresenceChecker
	gate      *PostingGate
}

// NewChatService creates a ChatService. publisher and presence may be nil.
func NewChatService(
	chat repository.ChatRepository,
	users repository.UserRepository,
	listings repository.ListingRepository,
	notifier NotificationSender,
	publisher ConversationPublisher,
	presence PresenceChecker,
) *ChatService {
	return &ChatService{
		chat:      chat,
		users:     users,
		listings:  listings,
		notifier:  notifier,
		publisher: publisher,
		presence:  presence,
		gate:      NewPostingGate(users),
	}
}

// StartConversation returns the conversation between the two users about the listing,
// creating it on first contact. With a listing, the other user must be its seller.
func (s *ChatService) StartConversation(ctx context.Context, in StartConversationInput) (*models.Conversation, error) {
	if in.OtherUserID == 0 {
		return nil, models.NewValidationError("Recipient is required")
	}
	if in.OtherUserID == in.UserID {
		return nil, models.NewValidationError("You cannot message yourself")
	}
	if _, err := s.users.GetProfile(ctx, in.OtherUserID); err != nil {
		return nil, err
	}
	if in.ListingID != nil {
		listing, err := s.listings.GetByID(ctx, *in.ListingID)
		if err != nil {
			return nil, err
		}
		if listing.SellerID != in.OtherUserID {
			return nil, models.NewValidationError("Listing conversations must be with the seller")
		}
	}

	existing, err := s.chat.FindConversation(ctx, in.UserID, in.OtherUserID, in.ListingID)
	if err == nil {
		return existing, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	conv := &models.Conversation{
		ParticipantOneID: in.UserID,
		ParticipantTwoID: in.OtherUserID,
		ListingID:        in.ListingID,
	}
	if err := s.chat.CreateConversation(ctx, conv); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			// Lost a race with the other participant.
			return s.chat.FindConversation(ctx, in.UserID, in.OtherUserID, in.ListingID)
		}
		return nil, err
	}
	return conv, nil
}

// ListConversations returns the user's inbox, most recent activity first.
func (s *ChatService) ListConversations(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	convs, err := s.chat.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	others := make([]uint, 0, len(convs))
	for i := range convs {
		others = append(others, convs[i].OtherParticipant(userID))
	}
	profiles, err := s.users.GetProfiles(ctx, others)
	if err != nil {
		return nil, err
	}

	out := make([]models.ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := convs[i]
		otherID := conv.OtherParticipant(userID)
		summary := models.ConversationSummary{Conversation: conv}
		if p, ok := profiles[otherID]; ok {
			summary.Other = p.Summary()
		} else {
			summary.Other = models.UserSummary{UserID: otherID}
		}
		if s.presence != nil {
			summary.OtherOnline = s.presence.IsOnline(otherID)
		}
		if summary.LastMessage, err = s.chat.LastMessage(ctx, conv.ID); err != nil {
			return nil, err
		}
		if summary.UnreadCount, err = s.chat.UnreadCount(ctx, conv.ID, userID); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *ChatService) participantConversation(ctx context.Context, userID, convID uint) (*models.Conversation, error) {
	conv, err := s.chat.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, models.NewForbiddenError("Not a participant of this conversation")
	}
	return conv, nil
}

// GetMessages returns a page of messages, oldest first. Participants only.
func (s *ChatService) GetMessages(ctx context.Context, userID, convID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.participantConversation(ctx, userID, convID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagePage
	}
	return s.chat.ListMessages(ctx, convID, limit, offset)
}

// SendMessage stores a message, fans it out to both participants and notifies the
// recipient.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, models.NewValidationError("Message too long (max 4000 characters)")
	}
	if err := s.gate.Check(ctx, in.UserID); err != nil {
		return nil, err
	}
	conv, err := s.participantConversation(ctx, in.UserID, in.ConversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{ConversationID: conv.ID, SenderID: in.UserID, Content: content}
	if err := s.chat.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, conv, notifications.EventMessageCreated, msg)

	recipient := conv.OtherParticipant(in.UserID)
	notifyQuietly(ctx, s.notifier, NotifyInput{
		UserID:  recipient,
		Type:    models.NotificationMessage,
		Ref:     models.ConversationRef{ConversationID: conv.ID},
		ActorID: in.UserID,
		Title:   fmt.Sprintf("New message from %s", displayName(ctx, s.users, in.UserID)),
		Body:    preview(content, messagePreviewLen),
		Data:    map[string]interface{}{"message_id": msg.ID},
	})
	return msg, nil
}

// MarkConversationRead marks the other participant's messages read.
func (s *ChatService) MarkConversationRead(ctx context.Context, userID, convID uint) (int64, error) {
	conv, err := s.participantConversation(ctx, userID, convID)
	if err != nil {
		return 0, err
	}
	n, err := s.chat.MarkRead(ctx, convID, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publish(ctx, conv, notifications.EventConversationRead, map[string]uint{
			"conversation_id": conv.ID,
			"reader_id":       userID,
		})
	}
	return n, nil
}

func (s *ChatService) publish(ctx context.Context, conv *models.Conversation, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	event, err := notifications.Encode(eventType, payload)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to encode chat event", "conversation_id", conv.ID, "error", err)
		return
	}
	envelope, err := json.Marshal(notifications.ConversationEnvelope{
		ConversationID: conv.ID,
		Participants:   []uint{conv.ParticipantOneID, conv.ParticipantTwoID},
		Event:          event,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to encode chat envelope", "conversation_id", conv.ID, "error", err)
		return
	}
	if err := s.publisher.PublishConversation(ctx, conv.ID, envelope); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish chat event",
			"conversation_id", conv.ID, "event", eventType, "error", err)
	}
}

func preview(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
