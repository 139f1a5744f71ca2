package service

import (
	"context"
	"encoding/json"

	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/notifications"
	"shutterhub/internal/repository"

	"gorm.io/datatypes"
)

const maxSinceLimit = notifications.ReplayBatchSize + 1

// UserPublisher pushes a realtime frame to one user's channel.
type UserPublisher interface {
	PublishUser(ctx context.Context, userID uint, payload []byte) error
}

// NotificationSender creates notifications. Callers treat failures as non-fatal.
type NotificationSender interface {
	Notify(ctx context.Context, in NotifyInput) (*models.Notification, error)
}

// NotifyInput describes one notification.
type NotifyInput struct {
	UserID  uint
	Type    models.NotificationType
	Ref     models.ContentRef
	ActorID uint
	Title   string
	Body    string
	Data    map[string]interface{}
}

// NotificationService stores notifications and signals clients to refetch.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher UserPublisher
}

// NewNotificationService creates a NotificationService. publisher may be nil.
func NewNotificationService(repo repository.NotificationRepository, publisher UserPublisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// Notify persists a notification and publishes a notification_created signal. Notifying
// the actor about their own action is skipped and returns nil, nil.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	if in.UserID == 0 || in.Type == "" {
		return nil, models.NewValidationError("Notification recipient and type are required")
	}
	if in.ActorID != 0 && in.ActorID == in.UserID {
		return nil, nil
	}

	n := &models.Notification{
		UserID: in.UserID,
		Type:   in.Type,
		Title:  in.Title,
		Body:   in.Body,
	}
	n.SetRef(in.Ref)
	if in.ActorID != 0 {
		actor := in.ActorID
		n.ActorID = &actor
	}
	if len(in.Data) > 0 {
		raw, err := json.Marshal(in.Data)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		n.Data = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	n.ResolveLink()
	s.Publish(ctx, n)
	return n, nil
}

// Publish sends the notification_created signal for an already stored notification.
// Failures are logged.
func (s *NotificationService) Publish(ctx context.Context, n *models.Notification) {
	if s.publisher == nil || n == nil {
		return
	}
	n.ResolveLink()
	payload, err := notifications.Encode(notifications.EventNotificationCreated, notifications.NotificationSignal{
		ID:    n.ID,
		Type:  string(n.Type),
		Title: n.Title,
		Link:  n.Link,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to encode notification signal", "notification_id", n.ID, "error", err)
		return
	}
	if err := s.publisher.PublishUser(ctx, n.UserID, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification signal",
			"notification_id", n.ID, "user_id", n.UserID, "error", err)
	}
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	items, total, err := s.repo.List(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	resolveLinks(items)
	return items, total, nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks one of the user's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

// MarkAllRead marks every notification of the user read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Since returns notifications with an id above cursor, oldest first. The limit is capped
// one above the replay batch so the dispatcher can tell whether more remain.
func (s *NotificationService) Since(ctx context.Context, userID, cursor uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxSinceLimit {
		limit = maxSinceLimit
	}
	items, err := s.repo.Since(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	resolveLinks(items)
	return items, nil
}

func resolveLinks(items []models.Notification) {
	for i := range items {
		items[i].ResolveLink()
	}
}

// notifyQuietly sends a notification and logs a failure instead of returning it.
func notifyQuietly(ctx context.Context, sender NotificationSender, in NotifyInput) {
	if sender == nil {
		return
	}
	if _, err := sender.Notify(ctx, in); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to create notification",
			"user_id", in.UserID, "type", string(in.Type), "error", err)
	}
}
