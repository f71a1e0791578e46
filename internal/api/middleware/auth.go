// Package middleware provides HTTP middleware for the SVP API.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"github.com/welldanyogia/svp-backend/internal/models"
)

const viewerKey = "viewer"

// Claims are the bearer token claims issued by the login service
type Claims struct {
	ID        uint    `json:"id"`
	Name      string  `json:"nome,omitempty"`
	Email     string  `json:"email,omitempty"`
	Role      string  `json:"perfil"`
	Portfolio *string `json:"carteira,omitempty"`
	jwt.RegisteredClaims
}

// Viewer returns the identity the claims act for
func (c *Claims) Viewer() access.Viewer {
	portfolio := c.Portfolio
	if portfolio != nil && strings.TrimSpace(*portfolio) == "" {
		portfolio = nil
	}
	return access.Viewer{UserID: c.ID, Role: models.Role(c.Role), Portfolio: portfolio}
}

// ParseToken verifies an HS256 token and returns its claims
func ParseToken(secret, token string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("token verification is not configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.ID == 0 {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// JWTAuth validates the bearer token from the Authorization header, or from
// the token query parameter where browsers cannot set headers (websocket
// upgrades), and stores the caller's Viewer in the context.
func JWTAuth(secret string, log *slog.Logger, security *logger.SecurityLogger) echo.MiddlewareFunc {
	if secret == "" && log != nil {
		log.Warn("JWT_SECRET not set - every authenticated route will answer 401")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()

			token := bearerToken(c)
			if token == "" {
				security.AuthFailure(c.RealIP(), path, "missing token")
				return response.Unauthorized(c, "missing authorization token")
			}

			claims, err := ParseToken(secret, token)
			if err != nil {
				security.AuthFailure(c.RealIP(), path, err.Error())
				return response.Unauthorized(c, "invalid token")
			}

			c.Set(viewerKey, claims.Viewer())
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(c.QueryParam("token"))
}

// ViewerFrom returns the Viewer stored by JWTAuth
func ViewerFrom(c echo.Context) (access.Viewer, bool) {
	v, ok := c.Get(viewerKey).(access.Viewer)
	return v, ok
}

// WithViewer stores v in the context, as JWTAuth does
func WithViewer(c echo.Context, v access.Viewer) {
	c.Set(viewerKey, v)
}
