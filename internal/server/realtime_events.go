package server

import (
	"context"
	"time"

	"shutterhub/internal/middleware"
	"shutterhub/internal/notifications"
)

// PresencePayload is broadcast when a user's first connection opens or last one closes.
type PresencePayload struct {
	UserID    uint   `json:"user_id"`
	Online    bool   `json:"online"`
	ChangedAt string `json:"changed_at"`
}

// publishPresence fans the presence change out to every instance. Without a notifier
// only local clients are told.
func (s *Server) publishPresence(userID uint, online bool) {
	frame, err := notifications.Encode(notifications.EventPresence, PresencePayload{
		UserID:    userID,
		Online:    online,
		ChangedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		middleware.Logger.Error("failed to encode presence event", "user_id", userID, "error", err)
		return
	}

	if s.notifier != nil {
		if err := s.notifier.PublishBroadcast(context.Background(), frame); err != nil {
			middleware.Logger.Warn("failed to publish presence event", "user_id", userID, "error", err)
		}
		return
	}
	if s.hub != nil {
		s.hub.BroadcastAll(frame)
	}
}
