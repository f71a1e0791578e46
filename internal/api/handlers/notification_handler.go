package handlers

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	"github.com/welldanyogia/svp-backend/internal/services"
)

// NotificationHandler handles the caller's notification inbox
type NotificationHandler struct {
	notifier *services.Notifier
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier *services.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// List handles GET /api/notificacoes
func (h *NotificationHandler) List(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}
	list, err := h.notifier.List(c.Request().Context(), v.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, list)
}

// MarkRead handles PATCH /api/notificacoes/:id/lida
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid notification ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := h.notifier.MarkRead(c.Request().Context(), v.UserID, id); err != nil {
		return response.Error(c, err)
	}
	return response.SuccessWithMessage(c, nil, "Notificação marcada como lida.")
}

// MarkAllRead handles PATCH /api/notificacoes/todas-lidas
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}
	n, err := h.notifier.MarkAllRead(c.Request().Context(), v.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.SuccessWithMessage(c, map[string]int64{"updated": n}, fmt.Sprintf("%d notificações marcadas como lidas.", n))
}
