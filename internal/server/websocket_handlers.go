package server

import (
	"log/slog"

	"townsquare/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedStreamHandler streams feed events to public subscribers.
// @Summary Feed stream
// @Description WebSocket stream of post_created, post_updated and post_deleted events
// @Tags posts
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws/feed [get]
func (s *Server) FeedStreamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			middleware.Logger.Warn("feed stream rejected", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
