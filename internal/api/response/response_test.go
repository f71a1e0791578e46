package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
)

func setupTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func TestSuccess_Returns200WithData(t *testing.T) {
	c, rec := setupTestContext()

	err := Success(c, map[string]string{"key": "value"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
}

func TestSuccessWithMessage_Returns200WithMessage(t *testing.T) {
	c, rec := setupTestContext()

	err := SuccessWithMessage(c, nil, "3 notificações marcadas")

	require.NoError(t, err)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "3 notificações marcadas", resp.Message)
}

func TestCreated_Returns201WithData(t *testing.T) {
	c, rec := setupTestContext()

	err := Created(c, map[string]int{"id": 1})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAcknowledge_ReturnsPlainOK(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, Acknowledge(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestError_ReturnsCorrectStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"thread not found", apperrors.ErrThreadNotFound, http.StatusNotFound, apperrors.CodeNotFound},
		{"wrapped not found", fmt.Errorf("loading: %w", apperrors.ErrAttachmentNotFound), http.StatusNotFound, apperrors.CodeNotFound},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, apperrors.CodeForbidden},
		{"invalid input", apperrors.ErrInvalidInput, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"invalid transition", apperrors.ErrInvalidTransition, http.StatusConflict, apperrors.CodeInvalidTransition},
		{"mail transport", fmt.Errorf("%w: dial tcp", apperrors.ErrMailTransport), http.StatusBadGateway, apperrors.CodeMailTransport},
		{"invalid signature", apperrors.ErrInvalidSignature, http.StatusNotAcceptable, apperrors.CodeInvalidSignature},
		{"app error", apperrors.NewAppError(apperrors.ErrInvalidInput, "text or files required", apperrors.CodeInvalidInput), http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := setupTestContext()

			require.NoError(t, Error(c, tt.err))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestError_HidesInternalCause(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, Error(c, errors.New("pq: connection refused")))

	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestBadRequest_Returns400(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, BadRequest(c, "invalid thread ID"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid thread ID")
}

func TestUnauthorized_Returns401(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, Unauthorized(c, "missing token"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotFound_Returns404(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, NotFound(c, "file not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternalError_Returns500(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, InternalError(c, "failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
