package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"shutterhub/internal/middleware"
	"shutterhub/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// Connection limit errors returned by Register.
var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Hub maps userID to that user's websocket clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	presence   *ConnectionManager
	closed     bool
}

// NewHub creates a Hub. The optional Redis client mirrors presence across instances.
func NewHub(redisClients ...*redis.Client) *Hub {
	var rdb *redis.Client
	if len(redisClients) > 0 {
		rdb = redisClients[0]
	}
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		presence: NewConnectionManager(rdb, ConnectionManagerConfig{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notification hub" }

// Register adds a connection for userID, enforcing the per-user and total limits.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	return h.register(userID, conn, false)
}

// RegisterHeld is Register for a client that starts out held: nothing broadcast after it
// becomes visible to the hub reaches Send until Release.
func (h *Hub) RegisterHeld(userID uint, conn *websocket.Conn) (*Client, error) {
	return h.register(userID, conn, true)
}

func (h *Hub) register(userID uint, conn *websocket.Conn, held bool) (*Client, error) {
	h.mu.Lock()
	if h.closed || h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	client.holding = held
	client.OnActivity = func(uid uint) {
		h.presence.Touch(context.Background(), uid)
	}
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.presence.Register(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes client and closes its send channel.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	client.Close()
	observability.WebSocketConnectionsTotal.Dec()
	h.presence.Unregister(context.Background(), client.UserID)
}

// SetPresenceCallbacks installs online/offline transition hooks.
func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	h.presence.SetCallbacks(onOnline, onOffline)
}

// Broadcast sends message to every connection of userID.
func (h *Hub) Broadcast(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		c.TrySend(message)
	}
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(message)
		}
	}
}

// IsOnline reports whether userID has a live connection here or fresh presence in Redis.
func (h *Hub) IsOnline(userID uint) bool {
	return h.presence.IsOnline(context.Background(), userID)
}

// ConnectionCount returns the number of registered clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Route delivers one pub/sub message to the matching local clients.
func (h *Hub) Route(channel, payload string) {
	if channel == broadcastChannel {
		h.BroadcastAll([]byte(payload))
		return
	}
	if userID, ok := parseChannelID(channel, userChannelPrefix); ok {
		h.Broadcast(userID, []byte(payload))
		return
	}
	if _, ok := parseChannelID(channel, convChannelPrefix); ok {
		var env ConversationEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil || len(env.Event) == 0 {
			middleware.Logger.Warn("invalid conversation envelope", "channel", channel)
			return
		}
		for _, uid := range env.Participants {
			h.Broadcast(uid, env.Event)
		}
		return
	}
	middleware.Logger.Warn("invalid realtime channel", "channel", channel)
}

// StartWiring subscribes the hub to the notifier's channels.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, h.Route)
}

// Shutdown closes every client. Each WritePump then sends a going-away close frame and
// closes its connection; the hub never writes to a connection itself.
func (h *Hub) Shutdown(_ context.Context) error {
	h.presence.Stop()

	h.mu.Lock()
	h.closed = true
	conns := h.conns
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	h.mu.Unlock()

	shutdownFrame := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, clients := range conns {
		for client := range clients {
			client.CloseWith(shutdownFrame)
			observability.WebSocketConnectionsTotal.Dec()
		}
	}
	return nil
}
