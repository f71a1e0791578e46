package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/storage"
)

// AttachmentHandler serves stored attachments to entitled users
type AttachmentHandler struct {
	threads      *services.ThreadService
	materializer *services.Materializer
	logger       *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(threads *services.ThreadService, materializer *services.Materializer, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		threads:      threads,
		materializer: materializer,
		logger:       logger,
	}
}

// Download handles GET /api/anexos/:id/download
func (h *AttachmentHandler) Download(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid attachment ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	attachment, err := h.threads.Attachment(c.Request().Context(), v, id)
	if err != nil {
		return response.Error(c, err)
	}

	file, err := h.materializer.Open(attachment.StoredName)
	if errors.Is(err, storage.ErrFileNotFound) {
		return response.NotFound(c, "attachment file not found")
	}
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to open attachment",
				slog.Uint64("attachment_id", uint64(id)),
				slog.Any("error", err))
		}
		return response.InternalError(c, "failed to retrieve file")
	}
	defer file.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, attachment.MimeType)
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": attachment.OriginalName}))
	if attachment.SizeBytes > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(attachment.SizeBytes, 10))
	}

	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), file)
	return err
}
