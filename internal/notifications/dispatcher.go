package notifications

import (
	"context"
	"encoding/json"

	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// ReplayBatchSize caps the notifications carried by one resync frame.
const ReplayBatchSize = 100

// ReplaySource returns a user's notifications with an id above cursor in ascending order.
type ReplaySource interface {
	Since(ctx context.Context, userID, cursor uint, limit int) ([]models.Notification, error)
}

// Dispatcher attaches websocket connections to the hub and replays missed notifications
// so a reconnecting client recovers the gap before it sees live events.
type Dispatcher struct {
	hub    *Hub
	source ReplaySource
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(hub *Hub, source ReplaySource) *Dispatcher {
	return &Dispatcher{hub: hub, source: source}
}

// Hub returns the underlying hub.
func (d *Dispatcher) Hub() *Hub { return d.hub }

// Attach registers conn for userID. When cursor is set the client is registered held, the
// replay frame is queued, and Release lets buffered live events follow it. Duplicates
// between the replay and held live events are possible; clients dedupe by notification id.
func (d *Dispatcher) Attach(ctx context.Context, userID uint, conn *websocket.Conn, cursor *uint) (*Client, error) {
	register := d.hub.Register
	if cursor != nil {
		register = d.hub.RegisterHeld
	}
	client, err := register(userID, conn)
	if err != nil {
		return nil, err
	}
	client.IncomingHandler = func(c *Client, msg []byte) {
		d.handleCommand(context.WithoutCancel(ctx), c, msg)
	}
	observability.WebSocketEventsTotal.WithLabelValues("connect").Inc()

	if cursor != nil {
		if err := d.Resync(ctx, client, *cursor); err != nil {
			middleware.Logger.WarnContext(ctx, "notification replay failed", "user_id", userID, "cursor", *cursor, "error", err)
			if frame, encErr := Encode(EventError, map[string]string{"error": "resync_failed"}); encErr == nil {
				client.SendDirect(frame)
			}
		}
		client.Release()
	}
	return client, nil
}

// Resync queues one notifications_resync frame with up to ReplayBatchSize items after cursor.
// has_more tells the client to ask again with the returned cursor.
func (d *Dispatcher) Resync(ctx context.Context, client *Client, cursor uint) error {
	items, err := d.source.Since(ctx, client.UserID, cursor, ReplayBatchSize+1)
	if err != nil {
		return err
	}
	hasMore := len(items) > ReplayBatchSize
	if hasMore {
		items = items[:ReplayBatchSize]
	}
	next := cursor
	for i := range items {
		items[i].ResolveLink()
		next = items[i].ID
	}
	if items == nil {
		items = []models.Notification{}
	}

	frame, err := Encode(EventNotificationsResync, ResyncPayload{Items: items, Cursor: next, HasMore: hasMore})
	if err != nil {
		return err
	}
	client.SendDirect(frame)
	observability.RealtimeReplayedNotifications.Add(float64(len(items)))
	observability.WebSocketEventsTotal.WithLabelValues(EventNotificationsResync).Inc()
	return nil
}

func (d *Dispatcher) handleCommand(ctx context.Context, c *Client, msg []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return
	}
	switch cmd.Type {
	case "resync":
		if err := d.Resync(ctx, c, cmd.Cursor); err != nil {
			middleware.Logger.WarnContext(ctx, "notification resync failed", "user_id", c.UserID, "error", err)
		}
	case "ping":
		if frame, err := Encode(EventPong, nil); err == nil {
			c.TrySend(frame)
		}
	}
}
