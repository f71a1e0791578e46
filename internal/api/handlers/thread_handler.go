package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/storage"
)

// Reply form fields
const (
	ReplyTextField  = "textoResposta"
	ReplyFilesField = "anexos"
	MaxReplyFiles   = 5
)

// ThreadHandler handles the comunicações (thread) routes
type ThreadHandler struct {
	threads  *services.ThreadService
	security *logger.SecurityLogger
	logger   *slog.Logger
}

// NewThreadHandler creates a new ThreadHandler
func NewThreadHandler(threads *services.ThreadService, security *logger.SecurityLogger, logger *slog.Logger) *ThreadHandler {
	return &ThreadHandler{threads: threads, security: security, logger: logger}
}

// List handles GET /api/comunicacoes
func (h *ThreadHandler) List(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}
	threads, err := h.threads.List(c.Request().Context(), v)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, threads)
}

// CountAnswered handles GET /api/comunicacoes/count-respondidas
func (h *ThreadHandler) CountAnswered(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}
	n, err := h.threads.CountAnswered(c.Request().Context(), v)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int64{"count": n})
}

// Get handles GET /api/comunicacoes/:id
func (h *ThreadHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid thread ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	detail, err := h.threads.Get(c.Request().Context(), v, id)
	if err != nil {
		h.logForbidden(c, v.UserID, err)
		return response.Error(c, err)
	}
	return response.Success(c, detail)
}

// MarkRead handles PATCH /api/comunicacoes/:id/ler
func (h *ThreadHandler) MarkRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid thread ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	status, err := h.threads.MarkRead(c.Request().Context(), v, id)
	if err != nil {
		h.logForbidden(c, v.UserID, err)
		return response.Error(c, err)
	}
	return response.SuccessWithMessage(c, map[string]string{"status": string(status)}, "Conversa marcada como lida.")
}

// Close handles PATCH /api/comunicacoes/:id/fechar
func (h *ThreadHandler) Close(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid thread ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	status, err := h.threads.Close(c.Request().Context(), v, id)
	if err != nil {
		h.logForbidden(c, v.UserID, err)
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": string(status)})
}

// Reply handles POST /api/comunicacoes/:id/responder (multipart: textoResposta + up to five anexos)
func (h *ThreadHandler) Reply(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid thread ID")
	}
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	in := services.ReplyInput{Text: c.FormValue(ReplyTextField)}
	if form, err := c.MultipartForm(); err == nil {
		files := form.File[ReplyFilesField]
		if len(files) > MaxReplyFiles {
			return response.BadRequest(c, fmt.Sprintf("at most %d attachments are allowed", MaxReplyFiles))
		}
		for _, fh := range files {
			if err := storage.ValidateFile(fh.Filename, fh.Size); err != nil {
				h.security.BlockedFileUpload(c.RealIP(), fh.Filename, err.Error())
				return response.BadRequest(c, fmt.Sprintf("%s: %v", fh.Filename, err))
			}
			part, err := readPart(ReplyFilesField, fh)
			if err != nil {
				return response.BadRequest(c, "failed to read attachment")
			}
			in.Files = append(in.Files, part)
		}
	}

	message, err := h.threads.Reply(c.Request().Context(), v, id, in)
	if err != nil {
		h.logForbidden(c, v.UserID, err)
		return response.Error(c, err)
	}
	return response.Created(c, message)
}

// RequestAuthorization handles POST /api/comunicacoes/autorizacao
func (h *ThreadHandler) RequestAuthorization(c echo.Context) error {
	v, err := viewer(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req services.AuthorizationRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	thread, err := h.threads.RequestAuthorization(c.Request().Context(), v, req)
	if err != nil {
		h.logForbidden(c, v.UserID, err)
		return response.Error(c, err)
	}
	return response.Created(c, thread)
}

func (h *ThreadHandler) logForbidden(c echo.Context, userID uint, err error) {
	if apperrors.GetErrorCode(err) == apperrors.CodeForbidden {
		h.security.ForbiddenAccess(c.RealIP(), c.Request().URL.Path, userID)
	}
}

// readPart loads an uploaded file into an InboundPart
func readPart(field string, fh *multipart.FileHeader) (services.InboundPart, error) {
	f, err := fh.Open()
	if err != nil {
		return services.InboundPart{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.InboundPart{}, err
	}
	return services.InboundPart{
		FieldName:   field,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
