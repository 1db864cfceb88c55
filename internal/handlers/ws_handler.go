package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/moyeo-app/moyeo/backend/internal/chat"
	"github.com/moyeo-app/moyeo/backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// cross-origin checks are delegated to the reverse proxy
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authenticated requests into live chat connections.
type WSHandler struct {
	hub      *chat.Hub
	sessions *chat.SessionManager
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *chat.Hub, sessions *chat.SessionManager) *WSHandler {
	return &WSHandler{hub: hub, sessions: sessions}
}

// Serve authenticates the handshake and hands the connection to the
// session manager. Browsers cannot set headers on websocket requests, so
// the token is accepted from the query string as well.
func (h *WSHandler) Serve(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}

	claims, err := middleware.ParseToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error response
		return nil
	}

	client := chat.NewClient(uuid.NewString(), claims.Identity(), conn)
	h.sessions.Attach(client)

	go client.WritePump()
	go client.ReadPump(h.hub, h.sessions)

	return nil
}
