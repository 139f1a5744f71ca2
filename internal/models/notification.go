package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType names the event a notification reports.
type NotificationType string

const (
	// NotificationLike is sent to a photo owner when someone likes the photo.
	NotificationLike NotificationType = "like"
	// NotificationComment is sent to a photo owner on a new top-level comment.
	NotificationComment NotificationType = "comment"
	// NotificationReply is sent to the author of a comment or topic that got a reply.
	NotificationReply NotificationType = "reply"
	// NotificationMessage is sent to the recipient of a direct message.
	NotificationMessage NotificationType = "message"
	// NotificationWarning is sent to a user warned by a moderator.
	NotificationWarning NotificationType = "warning"
	// NotificationSuspended is sent when warnings reach the suspension threshold.
	NotificationSuspended NotificationType = "suspended"
	// NotificationListingVerified is sent to a seller when a listing is verified.
	NotificationListingVerified NotificationType = "listing_verified"
	// NotificationSystem is a free-form administrative notice.
	NotificationSystem NotificationType = "system"
)

// Notification is a per-user inbox entry. Its ID doubles as the realtime replay cursor.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index:idx_notifications_user_id_id" json:"user_id"`
	Type        NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	RelatedType string           `gorm:"size:32" json:"related_type,omitempty"`
	RelatedID   *uint            `json:"related_id,omitempty"`
	ActorID     *uint            `json:"actor_id,omitempty"`
	Title       string           `gorm:"size:200" json:"title"`
	Body        string           `gorm:"type:text" json:"body"`
	Data        datatypes.JSON   `gorm:"type:json" json:"data,omitempty" swaggertype:"object"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	Link        string           `gorm:"-" json:"link,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Ref decodes the related content pointer. ok is false when the notification has none or
// its kind is unknown.
func (n *Notification) Ref() (ContentRef, bool) {
	if n.RelatedType == "" || n.RelatedID == nil {
		return nil, false
	}
	ref, err := ParseContentRef(n.RelatedType, *n.RelatedID)
	if err != nil {
		return nil, false
	}
	return ref, true
}

// SetRef stores ref as the related content pointer.
func (n *Notification) SetRef(ref ContentRef) {
	if ref == nil {
		n.RelatedType = ""
		n.RelatedID = nil
		return
	}
	id := ref.ID()
	n.RelatedType = string(ref.Kind())
	n.RelatedID = &id
}

// ResolveLink fills Link from the related content pointer.
func (n *Notification) ResolveLink() {
	if ref, ok := n.Ref(); ok {
		n.Link = ref.Path()
	}
}
