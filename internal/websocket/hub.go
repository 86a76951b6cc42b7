package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eduwatcheru/eduwatcheru/internal/metadata"
	"github.com/eduwatcheru/eduwatcheru/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBuffer = 256
)

// Message types exchanged with clients.
const (
	TypeSearchQuery = "search:query"
	TypeSearchPage  = "search:page"
	TypeSearchState = "search:state"
	TypeError       = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionFactory creates live search sessions for connected clients.
type SessionFactory interface {
	NewSearchSession(ctx context.Context, onChange func(metadata.SessionState)) *metadata.SearchSession
}

// Message represents a WebSocket message.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// QueryPayload is the payload of search:query.
type QueryPayload struct {
	Query string `json:"query"`
}

// PagePayload is the payload of search:page.
type PagePayload struct {
	Page int `json:"page"`
}

type incomingMessage struct {
	client  *Client
	message []byte
}

// Hub manages WebSocket connections, fans out broadcasts and binds one
// search session to each client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	incoming   chan incomingMessage
	done       chan struct{}
	mu         sync.RWMutex

	sessions SessionFactory
	logger   zerolog.Logger
}

// Client represents a WebSocket connection.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Owned by the hub goroutine.
	session *metadata.SearchSession
}

// NewHub creates a new WebSocket hub. sessions may be nil, in which case
// search messages are rejected.
func NewHub(sessions SessionFactory, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan incomingMessage, sendBuffer),
		done:       make(chan struct{}),
		sessions:   sessions,
		logger:     logger.With().Str("component", "websocket").Logger(),
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			var closing []*metadata.SearchSession
			for client := range h.clients {
				closing = append(closing, h.removeLocked(client))
			}
			h.mu.Unlock()
			closeSessions(closing...)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			var session *metadata.SearchSession
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				session = h.removeLocked(client)
			}
			h.mu.Unlock()
			closeSessions(session)

		case message := <-h.broadcast:
			var closing []*metadata.SearchSession
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					closing = append(closing, h.removeLocked(client))
				}
			}
			h.mu.Unlock()
			closeSessions(closing...)

		case incoming := <-h.incoming:
			h.handleIncoming(ctx, incoming)
		}
	}
}

// removeLocked drops a client and returns its session, which the caller
// closes after releasing the hub lock. Session callbacks take the hub read
// lock, so closing a session under the write lock could deadlock.
func (h *Hub) removeLocked(client *Client) *metadata.SearchSession {
	session := client.session
	client.session = nil
	delete(h.clients, client)
	close(client.send)
	return session
}

func closeSessions(sessions ...*metadata.SearchSession) {
	for _, s := range sessions {
		if s == nil {
			continue
		}
		s.Close()
		metrics.SearchSessionsActive.Dec()
	}
}

func (h *Hub) handleIncoming(ctx context.Context, incoming incomingMessage) {
	client := incoming.client

	h.mu.RLock()
	_, live := h.clients[client]
	h.mu.RUnlock()
	if !live {
		return
	}

	var msg Message
	if err := json.Unmarshal(incoming.message, &msg); err != nil {
		client.queue(TypeError, map[string]string{"error": "malformed message"})
		return
	}

	switch msg.Type {
	case TypeSearchQuery:
		var payload QueryPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.queue(TypeError, map[string]string{"error": "invalid search:query payload"})
			return
		}
		session := h.sessionFor(ctx, client)
		if session == nil {
			client.queue(TypeError, map[string]string{"error": "search is unavailable"})
			return
		}
		session.Input(payload.Query)

	case TypeSearchPage:
		var payload PagePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.queue(TypeError, map[string]string{"error": "invalid search:page payload"})
			return
		}
		if client.session == nil || !client.session.SetPage(payload.Page) {
			h.logger.Debug().Str("client", client.id).Int("page", payload.Page).Msg("Ignoring page request")
		}

	default:
		client.queue(TypeError, map[string]string{"error": "unknown message type " + msg.Type})
	}
}

func (h *Hub) sessionFor(ctx context.Context, client *Client) *metadata.SearchSession {
	if client.session != nil {
		return client.session
	}
	if h.sessions == nil {
		return nil
	}
	client.session = h.sessions.NewSearchSession(ctx, func(state metadata.SessionState) {
		client.queue(TypeSearchState, state)
	})
	metrics.SearchSessionsActive.Inc()
	h.logger.Debug().Str("client", client.id).Msg("Search session opened")
	return client.session
}

// queue encodes and enqueues a message for this client without blocking.
// Clients already removed from the hub are skipped; the read lock keeps the
// send from racing the close in removeLocked.
func (c *Client) queue(msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(outgoingMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Broadcast sends a message to all connected clients. It never blocks; when
// the queue is full the message is dropped. It must not log, since the log
// buffer publishes through it.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles WebSocket connection upgrade.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}
	h.logger.Debug().Str("client", client.id).Str("remote", c.RealIP()).Msg("Client connected")

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Str("client", c.id).Msg("Unexpected close")
			}
			break
		}

		select {
		case c.hub.incoming <- incomingMessage{client: c, message: message}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
