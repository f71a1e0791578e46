package logger

import (
	"log/slog"
	"time"
)

// SecurityLogger provides methods for logging security-related events.
// It ensures sensitive data is never logged. A nil *SecurityLogger discards
// every event.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a SecurityLogger writing through base
func NewSecurityLogger(base *slog.Logger) *SecurityLogger {
	if base == nil {
		base = slog.Default()
	}
	return &SecurityLogger{logger: base.With(slog.String("component", "security"))}
}

// NewSecurityLoggerWithHandler creates a SecurityLogger with a custom handler.
func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return &SecurityLogger{
		logger: slog.New(handler),
	}
}

func (s *SecurityLogger) warn(msg, eventType, ip string, attrs ...any) {
	if s == nil {
		return
	}
	base := []any{
		slog.String("event_type", eventType),
		slog.String("ip", ip),
		slog.Time("timestamp", time.Now().UTC()),
	}
	s.logger.Warn(msg, append(base, attrs...)...)
}

// AuthFailure logs a rejected bearer token. Never logs the token itself.
func (s *SecurityLogger) AuthFailure(ip, path, reason string) {
	s.warn("authentication_failure", "auth_failure", ip,
		slog.String("path", path),
		slog.String("reason", reason))
}

// ForbiddenAccess logs an authenticated user reaching for data outside their portfolio.
func (s *SecurityLogger) ForbiddenAccess(ip, path string, userID uint) {
	s.warn("forbidden_access", "forbidden", ip,
		slog.String("path", path),
		slog.Uint64("user_id", uint64(userID)))
}

// RateLimitExceeded logs when a client exceeds rate limits.
func (s *SecurityLogger) RateLimitExceeded(ip, path string) {
	s.warn("rate_limit_exceeded", "rate_limit", ip,
		slog.String("path", path))
}

// InvalidSignature logs a webhook delivery whose provider signature did not verify.
func (s *SecurityLogger) InvalidSignature(ip, path, reason string) {
	s.warn("invalid_webhook_signature", "invalid_signature", ip,
		slog.String("path", path),
		slog.String("reason", reason))
}

// InvalidOrigin logs a rejected WebSocket connection due to invalid origin.
func (s *SecurityLogger) InvalidOrigin(ip, origin string) {
	s.warn("invalid_origin", "invalid_origin", ip,
		slog.String("origin", origin))
}

// BlockedFileUpload logs a blocked file upload attempt.
func (s *SecurityLogger) BlockedFileUpload(ip, filename, reason string) {
	s.warn("blocked_file_upload", "blocked_upload", ip,
		slog.String("filename", filename),
		slog.String("reason", reason))
}

// SecurityEvent logs a generic security event.
func (s *SecurityLogger) SecurityEvent(eventType, ip string, details map[string]string) {
	var attrs []any
	for k, v := range details {
		// Filter out sensitive keys
		if isSensitiveKey(k) {
			continue
		}
		attrs = append(attrs, slog.String(k, v))
	}
	s.warn("security_event", eventType, ip, attrs...)
}

// isSensitiveKey checks if a key might contain sensitive data.
func isSensitiveKey(key string) bool {
	sensitiveKeys := map[string]bool{
		"password":      true,
		"token":         true,
		"secret":        true,
		"signature":     true,
		"signing_key":   true,
		"authorization": true,
		"auth":          true,
		"credential":    true,
		"credentials":   true,
		"cookie":        true,
	}
	return sensitiveKeys[key]
}
