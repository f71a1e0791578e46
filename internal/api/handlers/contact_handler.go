package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	"github.com/welldanyogia/svp-backend/internal/services"
)

// ContactHandler manages the e-mail contacts of a unit
type ContactHandler struct {
	directory *services.DirectoryService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(directory *services.DirectoryService) *ContactHandler {
	return &ContactHandler{directory: directory}
}

// ReplaceContactsRequest is the body of PUT /api/unidades/:id/contatos
type ReplaceContactsRequest struct {
	Emails []string `json:"emails"`
}

// List handles GET /api/unidades/:id/contatos
func (h *ContactHandler) List(c echo.Context) error {
	unitID, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid unit ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	contacts, err := h.directory.Contacts(c.Request().Context(), v, unitID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, contacts)
}

// Replace handles PUT /api/unidades/:id/contatos
func (h *ContactHandler) Replace(c echo.Context) error {
	unitID, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid unit ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req ReplaceContactsRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	contacts, err := h.directory.ReplaceContacts(c.Request().Context(), v, unitID, req.Emails)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, contacts)
}
