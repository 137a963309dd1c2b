package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"townsquare/internal/middleware"
	"townsquare/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const defaultMaxConns = 10000

// ErrHubFull is returned by Register when the connection limit is reached.
var ErrHubFull = errors.New("server connection limit reached")

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("hub is shutting down")

// Hub fans feed events out to every connected feed subscriber.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		maxConns: defaultMaxConns,
	}
}

// Register adds conn to the hub. conn may be nil in tests.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= h.maxConns {
		return nil, ErrHubFull
	}

	c := newClient(h, conn)
	h.clients[c] = struct{}{}
	observability.WebSocketConnections.Inc()
	return c, nil
}

// UnregisterClient removes c and closes its send buffer. Safe to call twice.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
	observability.WebSocketConnections.Dec()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// StartWiring relays events published by any instance to local clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		if c.Conn != nil {
			if err := c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Warn("failed to write websocket close message", slog.String("error", err.Error()))
			}
			_ = c.Conn.Close()
		}
		delete(h.clients, c)
		close(c.Send)
		observability.WebSocketConnections.Dec()
	}
	return nil
}
