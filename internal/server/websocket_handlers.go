// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"strconv"

	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	wsUserIDLocal = "wsUserID"
	wsCursorLocal = "wsCursor"
)

// WebSocketUpgrade redeems the single-use ticket and parses the replay cursor before the
// connection is upgraded. Browsers cannot set headers on a websocket handshake, so the
// ticket travels in the query string.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if s.dispatcher == nil {
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewInternalError(errors.New("realtime delivery unavailable")))
		}

		userID, err := s.authService.RedeemWSTicket(c.UserContext(), c.Query("ticket"))
		if err != nil {
			return respondServiceError(c, err)
		}

		if raw := c.Query("cursor"); raw != "" {
			cursor, perr := strconv.ParseUint(raw, 10, 32)
			if perr != nil {
				return badRequest(c, "cursor must be a non-negative notification id")
			}
			v := uint(cursor)
			c.Locals(wsCursorLocal, &v)
		}

		c.Locals(wsUserIDLocal, userID)
		return c.Next()
	}
}

// WebSocketHandler attaches the connection to the notification hub, replaying anything
// after the cursor before live events flow.
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(wsUserIDLocal).(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}
		cursor, _ := conn.Locals(wsCursorLocal).(*uint)

		ctx := context.Background()
		if s.shutdownCtx != nil {
			ctx = s.shutdownCtx
		}

		client, err := s.dispatcher.Attach(ctx, userID, conn, cursor)
		if err != nil {
			middleware.Logger.Warn("websocket attach refused", "user_id", userID, "error", err)
			if frame, encErr := notifications.Encode(notifications.EventError, map[string]string{"error": err.Error()}); encErr == nil {
				_ = conn.WriteMessage(websocket.TextMessage, frame)
			}
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("websocket connected", "user_id", userID, "replay", cursor != nil)

		// WritePump runs in its own goroutine; ReadPump blocks until the socket closes and
		// unregisters the client on the way out.
		go client.WritePump()
		client.ReadPump()
	})
}
