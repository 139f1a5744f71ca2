package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"shutterhub/internal/models"
	"shutterhub/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherSpy struct {
	mu        sync.Mutex
	envelopes []notifications.ConversationEnvelope
}

func (p *publisherSpy) PublishConversation(_ context.Context, _ uint, envelope []byte) error {
	var env notifications.ConversationEnvelope
	if err := json.Unmarshal(envelope, &env); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (p *publisherSpy) Published() []notifications.ConversationEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifications.ConversationEnvelope(nil), p.envelopes...)
}

type presenceStub map[uint]bool

func (p presenceStub) IsOnline(userID uint) bool { return p[userID] }

func eventType(t *testing.T, env notifications.ConversationEnvelope) string {
	t.Helper()
	var ev struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(env.Event, &ev))
	return ev.Type
}

func TestChatService_StartConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("cannot message yourself", func(t *testing.T) {
		t.Parallel()
		svc := NewChatService(noopChatRepo(), noopUserRepo(), noopListingRepo(), nil, nil, nil)
		_, err := svc.StartConversation(ctx, StartConversationInput{UserID: 3, OtherUserID: 3})
		assertValidationError(t, err)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getProfileFn = func(_ context.Context, id uint) (*models.Profile, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		svc := NewChatService(noopChatRepo(), users, noopListingRepo(), nil, nil, nil)
		_, err := svc.StartConversation(ctx, StartConversationInput{UserID: 3, OtherUserID: 4})
		assertNotFoundError(t, err)
	})

	t.Run("listing conversations are with the seller", func(t *testing.T) {
		t.Parallel()
		svc := NewChatService(noopChatRepo(), noopUserRepo(), noopListingRepo(), nil, nil, nil)
		_, err := svc.StartConversation(ctx, StartConversationInput{UserID: 3, OtherUserID: 4, ListingID: uintPtr(9)})
		assertValidationError(t, err)

		conv, err := svc.StartConversation(ctx, StartConversationInput{UserID: 3, OtherUserID: 100, ListingID: uintPtr(9)})
		require.NoError(t, err)
		require.NotNil(t, conv.ListingID)
		assert.Equal(t, uint(9), *conv.ListingID)
	})

	t.Run("reuses an existing conversation", func(t *testing.T) {
		t.Parallel()
		chat := noopChatRepo()
		chat.findConversationFn = func(_ context.Context, _, _ uint, _ *uint) (*models.Conversation, error) {
			return &models.Conversation{ID: 77, ParticipantOneID: 3, ParticipantTwoID: 4}, nil
		}
		chat.createConversationFn = func(_ context.Context, _ *models.Conversation) error {
			t.Fatal("create should not be called")
			return nil
		}
		svc := NewChatService(chat, noopUserRepo(), noopListingRepo(), nil, nil, nil)
		conv, err := svc.StartConversation(ctx, StartConversationInput{UserID: 4, OtherUserID: 3})
		require.NoError(t, err)
		assert.Equal(t, uint(77), conv.ID)
	})

	t.Run("lost create race finds the winner", func(t *testing.T) {
		t.Parallel()
		var finds int
		chat := noopChatRepo()
		chat.findConversationFn = func(_ context.Context, _, _ uint, _ *uint) (*models.Conversation, error) {
			finds++
			if finds == 1 {
				return nil, models.NewNotFoundError("Conversation", 0)
			}
			return &models.Conversation{ID: 78, ParticipantOneID: 3, ParticipantTwoID: 4}, nil
		}
		chat.createConversationFn = func(_ context.Context, _ *models.Conversation) error {
			return models.NewConflictError("conversation already exists")
		}
		svc := NewChatService(chat, noopUserRepo(), noopListingRepo(), nil, nil, nil)
		conv, err := svc.StartConversation(ctx, StartConversationInput{UserID: 3, OtherUserID: 4})
		require.NoError(t, err)
		assert.Equal(t, uint(78), conv.ID)
		assert.Equal(t, 2, finds)
	})
}

func TestChatService_GetMessages_ParticipantsOnly(t *testing.T) {
	t.Parallel()

	var gotLimit int
	chat := noopChatRepo()
	chat.listMessagesFn = func(_ context.Context, _ uint, limit, _ int) ([]models.Message, error) {
		gotLimit = limit
		return nil, nil
	}
	svc := NewChatService(chat, noopUserRepo(), noopListingRepo(), nil, nil, nil)

	_, err := svc.GetMessages(context.Background(), 9, 1, 0, 0)
	assertForbiddenError(t, err)

	_, err = svc.GetMessages(context.Background(), 2, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultMessagePage, gotLimit)
}

func TestChatService_SendMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("publishes and notifies the recipient", func(t *testing.T) {
		t.Parallel()
		pub := &publisherSpy{}
		spy := &notifierSpy{}
		svc := NewChatService(noopChatRepo(), noopUserRepo(), noopListingRepo(), spy, pub, nil)

		long := strings.Repeat("a", 120)
		msg, err := svc.SendMessage(ctx, SendMessageInput{UserID: 1, ConversationID: 5, Content: "  " + long + "  "})
		require.NoError(t, err)
		assert.Equal(t, long, msg.Content)

		published := pub.Published()
		require.Len(t, published, 1)
		assert.Equal(t, uint(5), published[0].ConversationID)
		assert.ElementsMatch(t, []uint{1, 2}, published[0].Participants)
		assert.Equal(t, notifications.EventMessageCreated, eventType(t, published[0]))

		sent := spy.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, uint(2), sent[0].UserID)
		assert.Equal(t, models.NotificationMessage, sent[0].Type)
		assert.Equal(t, models.ConversationRef{ConversationID: 5}, sent[0].Ref)
		assert.Equal(t, messagePreviewLen+1, utf8.RuneCountInString(sent[0].Body))
	})

	t.Run("non-participant", func(t *testing.T) {
		t.Parallel()
		svc := NewChatService(noopChatRepo(), noopUserRepo(), noopListingRepo(), nil, nil, nil)
		_, err := svc.SendMessage(ctx, SendMessageInput{UserID: 9, ConversationID: 5, Content: "hi"})
		assertForbiddenError(t, err)
	})

	t.Run("content bounds", func(t *testing.T) {
		t.Parallel()
		svc := NewChatService(noopChatRepo(), noopUserRepo(), noopListingRepo(), nil, nil, nil)
		_, err := svc.SendMessage(ctx, SendMessageInput{UserID: 1, ConversationID: 5, Content: "  "})
		assertValidationError(t, err)
		_, err = svc.SendMessage(ctx, SendMessageInput{UserID: 1, ConversationID: 5, Content: strings.Repeat("é", 4001)})
		assertValidationError(t, err)
		_, err = svc.SendMessage(ctx, SendMessageInput{UserID: 1, ConversationID: 5, Content: strings.Repeat("é", 4000)})
		require.NoError(t, err)
	})
}

func TestChatService_MarkConversationRead(t *testing.T) {
	t.Parallel()

	unread := int64(3)
	chat := noopChatRepo()
	chat.markReadFn = func(_ context.Context, _, _ uint) (int64, error) {
		n := unread
		unread = 0
		return n, nil
	}
	pub := &publisherSpy{}
	svc := NewChatService(chat, noopUserRepo(), noopListingRepo(), nil, pub, nil)

	n, err := svc.MarkConversationRead(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = svc.MarkConversationRead(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Zero(t, n)

	published := pub.Published()
	require.Len(t, published, 1)
	assert.Equal(t, notifications.EventConversationRead, eventType(t, published[0]))
}

func TestChatService_ListConversations(t *testing.T) {
	t.Parallel()

	chat := noopChatRepo()
	chat.listConversationsFn = func(_ context.Context, _ uint) ([]models.Conversation, error) {
		return []models.Conversation{
			{ID: 1, ParticipantOneID: 1, ParticipantTwoID: 2},
			{ID: 2, ParticipantOneID: 1, ParticipantTwoID: 3},
		}, nil
	}
	chat.unreadCountFn = func(_ context.Context, convID, _ uint) (int64, error) { return int64(convID), nil }
	users := noopUserRepo()
	users.getProfilesFn = func(_ context.Context, ids []uint) (map[uint]models.Profile, error) {
		out := map[uint]models.Profile{}
		for _, id := range ids {
			if id == 2 {
				out[id] = *testProfile(id)
			}
		}
		return out, nil
	}
	svc := NewChatService(chat, users, noopListingRepo(), nil, nil, presenceStub{2: true})

	summaries, err := svc.ListConversations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "user2", summaries[0].Other.Username)
	assert.True(t, summaries[0].OtherOnline)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)
	assert.Equal(t, uint(3), summaries[1].Other.UserID)
	assert.False(t, summaries[1].OtherOnline)
}
