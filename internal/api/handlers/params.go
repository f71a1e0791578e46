package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/api/middleware"
	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
)

// pathID parses a positive numeric path parameter
func pathID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// viewer returns the authenticated caller
func viewer(c echo.Context) (access.Viewer, error) {
	v, ok := middleware.ViewerFrom(c)
	if !ok {
		return access.Viewer{}, apperrors.ErrUnauthorized
	}
	return v, nil
}
