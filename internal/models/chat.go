package models

import "time"

// Conversation is a direct message thread between exactly two users, optionally about a
// listing. ParticipantOneID is always the smaller user id.
type Conversation struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	ParticipantOneID uint                `gorm:"not null;uniqueIndex:idx_conversations_pair_listing" json:"participant_one_id"`
	ParticipantTwoID uint                `gorm:"not null;uniqueIndex:idx_conversations_pair_listing;index" json:"participant_two_id"`
	ListingID        *uint               `gorm:"uniqueIndex:idx_conversations_pair_listing" json:"listing_id,omitempty"`
	Listing          *MarketplaceListing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	LastMessageAt    *time.Time          `gorm:"index" json:"last_message_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NormalizeParticipants orders a user pair the way conversations store it.
func NormalizeParticipants(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID takes part in c.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.ParticipantOneID == userID || c.ParticipantTwoID == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if c.ParticipantOneID == userID {
		return c.ParticipantTwoID
	}
	return c.ParticipantOneID
}

// Message is a single direct message.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	IsHidden       bool      `gorm:"default:false" json:"is_hidden"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConversationSummary is a row of the inbox view.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	Other        UserSummary  `json:"other_participant"`
	OtherOnline  bool         `json:"other_online"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	UnreadCount  int64        `json:"unread_count"`
}
