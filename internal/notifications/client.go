package notifications

import (
	"log/slog"
	"time"

	"townsquare/internal/middleware"
	"townsquare/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Feed subscribers only send control frames.
	maxMessageSize = 512

	sendBuffer = 64
)

// Client is a middleman between one feed WebSocket connection and the Hub.
type Client struct {
	hub *Hub

	// Conn is nil for clients registered without a socket (tests).
	Conn *websocket.Conn

	// Send buffers outbound messages.
	Send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}

// ReadPump drains the connection so pongs and close frames are processed.
// It returns when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("feed websocket read error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
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
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
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

// TrySend queues message without blocking. A full buffer drops the message
// and queues a gap notice so the client knows to re-fetch the feed.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		dropNotice := []byte(`{"type":"events_dropped","payload":{"reason":"buffer_full"}}`)
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
