package handlers

import (
	"log/slog"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	"github.com/welldanyogia/svp-backend/internal/websocket"
)

// WebSocketHandler upgrades authenticated clients onto the real-time hub
type WebSocketHandler struct {
	hub       *websocket.Hub
	upgrader  gorillaws.Upgrader
	authorize websocket.ThreadAuthorizer
	logger    *slog.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler. authorize decides which
// thread channels a client may subscribe to.
func NewWebSocketHandler(hub *websocket.Hub, upgrader gorillaws.Upgrader, authorize websocket.ThreadAuthorizer, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		upgrader:  upgrader,
		authorize: authorize,
		logger:    logger,
	}
}

// Serve handles GET /ws?token=...
func (h *WebSocketHandler) Serve(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		if h.logger != nil {
			h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		}
		return nil
	}

	websocket.NewClient(h.hub, conn, v, h.authorize, h.logger).Serve()
	return nil
}
