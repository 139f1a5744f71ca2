package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"shutterhub/internal/models"
	"shutterhub/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userPublisherSpy struct {
	mu     sync.Mutex
	frames map[uint][][]byte
	err    error
}

func (p *userPublisherSpy) PublishUser(_ context.Context, userID uint, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frames == nil {
		p.frames = map[uint][][]byte{}
	}
	p.frames[userID] = append(p.frames[userID], payload)
	return p.err
}

func (p *userPublisherSpy) For(userID uint) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames[userID]
}

func TestNotificationService_Notify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores and signals", func(t *testing.T) {
		t.Parallel()
		var stored *models.Notification
		repo := noopNotificationRepo()
		repo.createFn = func(_ context.Context, n *models.Notification) error {
			n.ID = 31
			stored = n
			return nil
		}
		pub := &userPublisherSpy{}
		svc := NewNotificationService(repo, pub)

		n, err := svc.Notify(ctx, NotifyInput{
			UserID:  5,
			Type:    models.NotificationComment,
			Ref:     models.PhotoRef{PhotoID: 9},
			ActorID: 6,
			Title:   "New comment",
			Data:    map[string]interface{}{"comment_id": 4},
		})
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, string(models.KindPhoto), stored.RelatedType)
		require.NotNil(t, stored.ActorID)
		assert.Equal(t, uint(6), *stored.ActorID)
		assert.JSONEq(t, `{"comment_id":4}`, string(stored.Data))
		assert.Equal(t, "/photos/9", n.Link)

		frames := pub.For(5)
		require.Len(t, frames, 1)
		var ev struct {
			Type    string                           `json:"type"`
			Payload notifications.NotificationSignal `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(frames[0], &ev))
		assert.Equal(t, notifications.EventNotificationCreated, ev.Type)
		assert.Equal(t, uint(31), ev.Payload.ID)
		assert.Equal(t, "/photos/9", ev.Payload.Link)
	})

	t.Run("skips self notifications", func(t *testing.T) {
		t.Parallel()
		repo := noopNotificationRepo()
		repo.createFn = func(_ context.Context, _ *models.Notification) error {
			t.Fatal("create should not be called")
			return nil
		}
		svc := NewNotificationService(repo, nil)
		n, err := svc.Notify(ctx, NotifyInput{UserID: 5, ActorID: 5, Type: models.NotificationLike})
		require.NoError(t, err)
		assert.Nil(t, n)
	})

	t.Run("requires recipient and type", func(t *testing.T) {
		t.Parallel()
		svc := NewNotificationService(noopNotificationRepo(), nil)
		_, err := svc.Notify(ctx, NotifyInput{Type: models.NotificationLike})
		assertValidationError(t, err)
		_, err = svc.Notify(ctx, NotifyInput{UserID: 1})
		assertValidationError(t, err)
	})

	t.Run("publish failure is not an error", func(t *testing.T) {
		t.Parallel()
		svc := NewNotificationService(noopNotificationRepo(), &userPublisherSpy{err: errors.New("redis down")})
		_, err := svc.Notify(ctx, NotifyInput{UserID: 5, Type: models.NotificationLike})
		require.NoError(t, err)
	})
}

func TestNotificationService_MarkRead(t *testing.T) {
	t.Parallel()

	repo := noopNotificationRepo()
	repo.markReadFn = func(_ context.Context, id, userID uint) (bool, error) {
		return id == 1 && userID == 5, nil
	}
	svc := NewNotificationService(repo, nil)

	require.NoError(t, svc.MarkRead(context.Background(), 5, 1))
	assertNotFoundError(t, svc.MarkRead(context.Background(), 6, 1))
}

func TestNotificationService_Since(t *testing.T) {
	t.Parallel()

	var gotLimit int
	repo := noopNotificationRepo()
	repo.sinceFn = func(_ context.Context, _, cursor uint, limit int) ([]models.Notification, error) {
		gotLimit = limit
		id := cursor + 1
		related := uint(3)
		return []models.Notification{{ID: id, RelatedType: string(models.KindTopic), RelatedID: &related}}, nil
	}
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	items, err := svc.Since(ctx, 5, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, notifications.ReplayBatchSize+1, gotLimit)
	require.Len(t, items, 1)
	assert.Equal(t, uint(11), items[0].ID)
	assert.Equal(t, "/forum/topics/3", items[0].Link)

	_, err = svc.Since(ctx, 5, 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, notifications.ReplayBatchSize+1, gotLimit)

	_, err = svc.Since(ctx, 5, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
}
