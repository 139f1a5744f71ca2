package notifications

import (
	"encoding/json"
	"fmt"
)

// Event types carried in the "type" field of every realtime frame.
const (
	EventNotificationCreated = "notification_created"
	EventNotificationsResync = "notifications_resync"
	EventMessageCreated      = "message_created"
	EventConversationRead    = "conversation_read"
	EventMessagesDropped     = "messages_dropped"
	EventPresence            = "presence"
	EventPong                = "pong"
	EventError               = "error"
)

// Event is the JSON frame sent to websocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Encode marshals an event frame.
func Encode(eventType string, payload interface{}) ([]byte, error) {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return b, nil
}

// ConversationEnvelope is published on chat:conv:<id>. The hub forwards Event to every
// participant.
type ConversationEnvelope struct {
	ConversationID uint            `json:"conversation_id"`
	Participants   []uint          `json:"participants"`
	Event          json.RawMessage `json:"event"`
}

// NotificationSignal is the payload of notification_created. Clients refetch on receipt;
// the fields only let them badge without a round trip.
type NotificationSignal struct {
	ID    uint   `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

// ResyncPayload is the payload of notifications_resync.
type ResyncPayload struct {
	Items   interface{} `json:"items"`
	Cursor  uint        `json:"cursor"`
	HasMore bool        `json:"has_more"`
}

// clientCommand is a frame sent by a websocket client.
type clientCommand struct {
	Type   string `json:"type"`
	Cursor uint   `json:"cursor"`
}
