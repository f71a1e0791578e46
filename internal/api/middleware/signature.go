package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
	"github.com/welldanyogia/svp-backend/internal/logger"
)

// VerifyMailgunSignature checks a Mailgun webhook signature: the hex
// HMAC-SHA256 of timestamp+token under the signing key
func VerifyMailgunSignature(signingKey, timestamp, token, signature string) bool {
	if timestamp == "" || token == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(timestamp + token))
	return hmac.Equal(mac.Sum(nil), expected)
}

// MailgunSignature rejects form-encoded webhook deliveries whose signature does
// not verify with 406, which Mailgun treats as final. An empty signing key
// disables the check.
func MailgunSignature(signingKey string, security *logger.SecurityLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if signingKey == "" {
				return next(c)
			}
			if !VerifyMailgunSignature(signingKey, c.FormValue("timestamp"), c.FormValue("token"), c.FormValue("signature")) {
				security.InvalidSignature(c.RealIP(), c.Path(), "mailgun signature mismatch")
				return c.String(http.StatusNotAcceptable, apperrors.ErrInvalidSignature.Error())
			}
			return next(c)
		}
	}
}
