package notifications

import (
	"sync"
	"time"

	"shutterhub/internal/middleware"
	"shutterhub/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBufferSize = 256
)

var dropNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	Hub WSHub

	// The websocket connection. Nil in tests.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	UserID uint

	// IncomingHandler receives every frame read from the peer.
	IncomingHandler func(*Client, []byte)

	// OnActivity is called whenever the peer shows signs of life.
	OnActivity func(userID uint)

	mu         sync.Mutex
	holding    bool
	held       [][]byte
	closed     bool
	closeFrame []byte
}

// NewClient creates a new Client instance
func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// Hold buffers live messages until Release. The dispatcher registers a resyncing client
// already held (Hub.RegisterHeld) so live events never overtake the replay.
func (c *Client) Hold() {
	c.mu.Lock()
	c.holding = true
	c.mu.Unlock()
}

// Release flushes held messages in arrival order and resumes direct delivery. The flush
// runs under the client lock, so a TrySend racing with it queues after the held backlog.
func (c *Client) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.held {
		c.deliverLocked(m)
	}
	c.held = nil
	c.holding = false
}

// SendDirect queues a frame ahead of any held messages.
func (c *Client) SendDirect(message []byte) {
	c.deliver(message)
}

// TrySend queues message without blocking. When the buffer is full the message is dropped
// and a messages_dropped notice is queued so the client knows to refetch.
func (c *Client) TrySend(message []byte) {
	c.mu.Lock()
	if c.holding {
		if len(c.held) < sendBufferSize {
			c.held = append(c.held, message)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.dropped("held_full")
		return
	}
	c.mu.Unlock()
	c.deliver(message)
}

func (c *Client) deliver(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliverLocked(message)
}

func (c *Client) deliverLocked(message []byte) {
	if c.closed {
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		return
	}
	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropped message", "user_id", c.UserID, "hub", c.Hub.Name())
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}

func (c *Client) dropped(reason string) {
	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), reason).Inc()
	c.deliver(dropNotice)
}

// Close stops delivery and closes Send. It is safe to call more than once.
func (c *Client) Close() {
	c.CloseWith(nil)
}

// CloseWith is Close with the close frame WritePump sends before hanging up. An empty
// frame sends a close with no status.
func (c *Client) CloseWith(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeFrame = frame
	close(c.Send)
}

// closingFrame is only read after Send is closed, which orders it after CloseWith.
func (c *Client) closingFrame() []byte {
	if c.closeFrame == nil {
		return []byte{}
	}
	return c.closeFrame
}

// ReadPump pumps messages from the websocket connection to IncomingHandler.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		if c.OnActivity != nil {
			c.OnActivity(c.UserID)
		}
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed", "user_id", c.UserID, "error", err)
			}
			break
		}
		if c.OnActivity != nil {
			c.OnActivity(c.UserID)
		}
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump pumps messages from Send to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, c.closingFrame())
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
