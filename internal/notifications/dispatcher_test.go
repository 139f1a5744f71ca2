package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"shutterhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replayStub struct {
	items []models.Notification
	err   error
	calls []uint
}

func (s *replayStub) Since(_ context.Context, userID, cursor uint, limit int) ([]models.Notification, error) {
	s.calls = append(s.calls, cursor)
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Notification
	for _, n := range s.items {
		if n.UserID == userID && n.ID > cursor && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func notificationsFor(userID uint, n int) []models.Notification {
	items := make([]models.Notification, 0, n)
	for i := 1; i <= n; i++ {
		id := uint(i)
		items = append(items, models.Notification{ID: id, UserID: userID, Type: models.NotificationLike, RelatedType: "photo", RelatedID: &id})
	}
	return items
}

type resyncFrame struct {
	Type    string `json:"type"`
	Payload struct {
		Items   []models.Notification `json:"items"`
		Cursor  uint                  `json:"cursor"`
		HasMore bool                  `json:"has_more"`
	} `json:"payload"`
}

func decodeResync(t *testing.T, raw string) resyncFrame {
	t.Helper()
	var f resyncFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	require.Equal(t, EventNotificationsResync, f.Type)
	return f
}

func TestDispatcher_AttachReplaysBeforeLiveEvents(t *testing.T) {
	source := &replayStub{items: notificationsFor(7, 3)}
	d := NewDispatcher(NewHub(), source)
	defer func() { _ = d.Hub().Shutdown(context.Background()) }()

	cursor := uint(1)
	client, err := d.Attach(context.Background(), 7, nil, &cursor)
	require.NoError(t, err)

	d.Hub().Route(UserChannel(7), `{"type":"notification_created"}`)

	frames := drain(client)
	require.Len(t, frames, 2)
	f := decodeResync(t, frames[0])
	require.Len(t, f.Payload.Items, 2)
	assert.Equal(t, uint(2), f.Payload.Items[0].ID)
	assert.Equal(t, "/photos/2", f.Payload.Items[0].Link)
	assert.Equal(t, uint(3), f.Payload.Cursor)
	assert.False(t, f.Payload.HasMore)
	assert.Equal(t, `{"type":"notification_created"}`, frames[1])
}

func TestDispatcher_ResyncPagesWithHasMore(t *testing.T) {
	source := &replayStub{items: notificationsFor(8, ReplayBatchSize+5)}
	d := NewDispatcher(NewHub(), source)
	defer func() { _ = d.Hub().Shutdown(context.Background()) }()

	cursor := uint(0)
	client, err := d.Attach(context.Background(), 8, nil, &cursor)
	require.NoError(t, err)

	f := decodeResync(t, drain(client)[0])
	assert.Len(t, f.Payload.Items, ReplayBatchSize)
	assert.True(t, f.Payload.HasMore)
	assert.Equal(t, uint(ReplayBatchSize), f.Payload.Cursor)

	// The client asks for the rest with the returned cursor.
	client.IncomingHandler(client, []byte(`{"type":"resync","cursor":100}`))
	f = decodeResync(t, drain(client)[0])
	assert.Len(t, f.Payload.Items, 5)
	assert.False(t, f.Payload.HasMore)
	assert.Equal(t, uint(ReplayBatchSize+5), f.Payload.Cursor)
}

func TestDispatcher_NoCursorSkipsReplay(t *testing.T) {
	source := &replayStub{items: notificationsFor(9, 2)}
	d := NewDispatcher(NewHub(), source)
	defer func() { _ = d.Hub().Shutdown(context.Background()) }()

	client, err := d.Attach(context.Background(), 9, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, drain(client))
	assert.Empty(t, source.calls)

	client.IncomingHandler(client, []byte(`{"type":"ping"}`))
	assert.Equal(t, []string{`{"type":"pong"}`}, drain(client))

	client.IncomingHandler(client, []byte(`not json`))
	assert.Empty(t, drain(client))
}

func TestDispatcher_ReplayFailureSendsErrorAndKeepsClient(t *testing.T) {
	source := &replayStub{err: errors.New("db down")}
	d := NewDispatcher(NewHub(), source)
	defer func() { _ = d.Hub().Shutdown(context.Background()) }()

	cursor := uint(4)
	client, err := d.Attach(context.Background(), 10, nil, &cursor)
	require.NoError(t, err)

	frames := drain(client)
	require.Len(t, frames, 1)
	assert.Contains(t, frames[0], "resync_failed")
	assert.Equal(t, 1, d.Hub().ConnectionCount())
}
