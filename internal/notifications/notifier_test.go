package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, []byte("x")))
	assert.NoError(t, n.PublishConversation(context.Background(), 1, []byte("x")))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestChannelNames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		got  string
		want string
	}{
		{UserChannel(1), "notifications:user:1"},
		{UserChannel(100), "notifications:user:100"},
		{ConversationChannel(5), "chat:conv:5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got)
	}

	id, ok := parseChannelID("notifications:user:42", userChannelPrefix)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
	_, ok = parseChannelID("notifications:user:", userChannelPrefix)
	assert.False(t, ok)
	_, ok = parseChannelID("chat:conv:0", convChannelPrefix)
	assert.False(t, ok)
}

func TestHub_StartWiringDeliversPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	client, err := hub.Register(3, nil)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))
	require.NoError(t, n.PublishUser(context.Background(), 3, []byte(`{"type":"notification_created"}`)))

	var got []byte
	assert.Eventually(t, func() bool {
		select {
		case got = <-client.Send:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"type":"notification_created"}`, string(got))
}
