package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/services"
)

// ReportHandler serves the delivery report of sent messages
type ReportHandler struct {
	events *services.DeliveryEventRecorder
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(events *services.DeliveryEventRecorder) *ReportHandler {
	return &ReportHandler{events: events}
}

// Deliveries handles GET /api/eventos?condominio_id=&email=&assunto=
func (h *ReportHandler) Deliveries(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	filter := repository.OutboundFilter{
		Recipient: c.QueryParam("email"),
		Subject:   c.QueryParam("assunto"),
	}
	if raw := c.QueryParam("condominio_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "invalid condominio_id")
		}
		filter.CondominiumID = uint(id)
	}

	items, err := h.events.Report(c.Request().Context(), v, filter)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]any{"data": items, "total": len(items)})
}
