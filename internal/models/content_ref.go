package models

import (
	"fmt"
)

// ContentKind is the stored name of a content reference kind.
type ContentKind string

const (
	KindPhoto        ContentKind = "photo"
	KindComment      ContentKind = "comment"
	KindTopic        ContentKind = "topic"
	KindReply        ContentKind = "reply"
	KindListing      ContentKind = "listing"
	KindMessage      ContentKind = "message"
	KindUser         ContentKind = "user"
	KindConversation ContentKind = "conversation"
)

// ContentRef points at one row of a known content table. The concrete variants are the
// *Ref types in this file; ParseContentRef is the only way to build one from stored columns.
type ContentRef interface {
	Kind() ContentKind
	ID() uint
	// Path is the client route that displays the referenced content.
	Path() string
	isContentRef()
}

// Hideable is implemented by refs whose table carries an is_hidden flag.
type Hideable interface {
	ContentRef
	HideTable() string
}

// PhotoRef references a photo.
type PhotoRef struct{ PhotoID uint }

// CommentRef references a photo comment.
type CommentRef struct{ CommentID uint }

// TopicRef references a forum topic.
type TopicRef struct{ TopicID uint }

// ReplyRef references a forum reply.
type ReplyRef struct{ ReplyID uint }

// ListingRef references a marketplace listing.
type ListingRef struct{ ListingID uint }

// MessageRef references a direct message.
type MessageRef struct{ MessageID uint }

// UserRef references a user profile.
type UserRef struct{ UserID uint }

// ConversationRef references a conversation.
type ConversationRef struct{ ConversationID uint }

func (PhotoRef) Kind() ContentKind        { return KindPhoto }
func (CommentRef) Kind() ContentKind      { return KindComment }
func (TopicRef) Kind() ContentKind        { return KindTopic }
func (ReplyRef) Kind() ContentKind        { return KindReply }
func (ListingRef) Kind() ContentKind      { return KindListing }
func (MessageRef) Kind() ContentKind      { return KindMessage }
func (UserRef) Kind() ContentKind         { return KindUser }
func (ConversationRef) Kind() ContentKind { return KindConversation }

func (r PhotoRef) ID() uint        { return r.PhotoID }
func (r CommentRef) ID() uint      { return r.CommentID }
func (r TopicRef) ID() uint        { return r.TopicID }
func (r ReplyRef) ID() uint        { return r.ReplyID }
func (r ListingRef) ID() uint      { return r.ListingID }
func (r MessageRef) ID() uint      { return r.MessageID }
func (r UserRef) ID() uint         { return r.UserID }
func (r ConversationRef) ID() uint { return r.ConversationID }

func (r PhotoRef) Path() string        { return fmt.Sprintf("/photos/%d", r.PhotoID) }
func (r CommentRef) Path() string      { return fmt.Sprintf("/comments/%d", r.CommentID) }
func (r TopicRef) Path() string        { return fmt.Sprintf("/forum/topics/%d", r.TopicID) }
func (r ReplyRef) Path() string        { return fmt.Sprintf("/forum/replies/%d", r.ReplyID) }
func (r ListingRef) Path() string      { return fmt.Sprintf("/marketplace/%d", r.ListingID) }
func (r MessageRef) Path() string      { return fmt.Sprintf("/messages/m/%d", r.MessageID) }
func (r UserRef) Path() string         { return fmt.Sprintf("/users/%d", r.UserID) }
func (r ConversationRef) Path() string { return fmt.Sprintf("/messages/%d", r.ConversationID) }

func (PhotoRef) isContentRef()        {}
func (CommentRef) isContentRef()      {}
func (TopicRef) isContentRef()        {}
func (ReplyRef) isContentRef()        {}
func (ListingRef) isContentRef()      {}
func (MessageRef) isContentRef()      {}
func (UserRef) isContentRef()         {}
func (ConversationRef) isContentRef() {}

func (PhotoRef) HideTable() string   { return "photos" }
func (CommentRef) HideTable() string { return "comments" }
func (TopicRef) HideTable() string   { return "forum_topics" }
func (ReplyRef) HideTable() string   { return "forum_replies" }
func (ListingRef) HideTable() string { return "marketplace_listings" }
func (MessageRef) HideTable() string { return "messages" }

// ParseContentRef decodes a stored (type, id) pair.
func ParseContentRef(kind string, id uint) (ContentRef, error) {
	if id == 0 {
		return nil, NewValidationError("content id is required")
	}
	switch ContentKind(kind) {
	case KindPhoto:
		return PhotoRef{PhotoID: id}, nil
	case KindComment:
		return CommentRef{CommentID: id}, nil
	case KindTopic:
		return TopicRef{TopicID: id}, nil
	case KindReply:
		return ReplyRef{ReplyID: id}, nil
	case KindListing:
		return ListingRef{ListingID: id}, nil
	case KindMessage:
		return MessageRef{MessageID: id}, nil
	case KindUser:
		return UserRef{UserID: id}, nil
	case KindConversation:
		return ConversationRef{ConversationID: id}, nil
	}
	return nil, NewValidationError(fmt.Sprintf("unknown content type %q", kind))
}

// IsFavoritable reports whether ref may be bookmarked.
func IsFavoritable(ref ContentRef) bool {
	switch ref.(type) {
	case PhotoRef, ListingRef:
		return true
	}
	return false
}
