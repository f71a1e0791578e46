package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/welldanyogia/svp-backend/internal/api/middleware"
	"github.com/welldanyogia/svp-backend/internal/api/response"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// MaxEventPayloadSize bounds the body of an event delivery
const MaxEventPayloadSize = 1 << 20

const eventSchemaURL = "mailgun-event.json"

// eventSchema describes the part of a Mailgun event delivery we rely on
const eventSchema = `{
  "type": "object",
  "required": ["event-data"],
  "properties": {
    "signature": {
      "type": "object",
      "properties": {
        "timestamp": {"type": ["string", "number"]},
        "token": {"type": "string"},
        "signature": {"type": "string"}
      }
    },
    "event-data": {
      "type": "object",
      "required": ["event"],
      "properties": {
        "event": {"type": "string", "minLength": 1},
        "recipient": {"type": "string"},
        "id": {"type": "string"},
        "message": {
          "type": "object",
          "properties": {
            "headers": {
              "type": "object",
              "properties": {"message-id": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`

// InboundReceiver settles an inbound delivery
type InboundReceiver interface {
	Receive(ctx context.Context, mail *services.InboundMail) (*services.ReceiveResult, error)
}

// EventRecorder stores delivery events
type EventRecorder interface {
	Record(ctx context.Context, externalID, recipient, rawKind string, payload []byte)
}

// WebhookHandler receives Mailgun inbound routes and event notifications
type WebhookHandler struct {
	inbound    InboundReceiver
	events     EventRecorder
	schema     *jsonschema.Schema
	signingKey string
	security   *logger.SecurityLogger
	logger     *slog.Logger
}

// WebhookConfig holds WebhookHandler dependencies
type WebhookConfig struct {
	Inbound    InboundReceiver
	Events     EventRecorder
	SigningKey string
	Security   *logger.SecurityLogger
	Logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(cfg WebhookConfig) (*WebhookHandler, error) {
	schema, err := compileEventSchema()
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &WebhookHandler{
		inbound:    cfg.Inbound,
		events:     cfg.Events,
		schema:     schema,
		signingKey: cfg.SigningKey,
		security:   cfg.Security,
		logger:     cfg.Logger,
	}, nil
}

func compileEventSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(eventSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse event schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(eventSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add event schema: %w", err)
	}
	schema, err := compiler.Compile(eventSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile event schema: %w", err)
	}
	return schema, nil
}

// Inbound handles POST /api/emails/webhook/inbound. Every settled delivery is
// acknowledged with 200 so Mailgun stops retrying; storage failures answer 500.
func (h *WebhookHandler) Inbound(c echo.Context) error {
	mail, err := h.parseInbound(c)
	if err != nil {
		h.logger.Warn("unreadable inbound webhook", slog.Any("error", err))
		return response.Acknowledge(c)
	}
	if mail.IsEmpty() {
		h.logger.Info("empty inbound webhook ignored")
		return response.Acknowledge(c)
	}

	result, err := h.inbound.Receive(c.Request().Context(), mail)
	if err != nil {
		h.logger.Error("inbound delivery failed",
			slog.String("message_id", mail.MessageID),
			slog.Any("error", err))
		return response.Error(c, err)
	}

	h.logger.Info("inbound delivery settled",
		slog.String("message_id", mail.MessageID),
		slog.String("outcome", string(result.Outcome)),
		slog.Uint64("thread_id", uint64(result.ThreadID)))
	return response.Acknowledge(c)
}

func (h *WebhookHandler) parseInbound(c echo.Context) (*services.InboundMail, error) {
	req := c.Request()
	var (
		values url.Values
		files  map[string][]*multipart.FileHeader
	)
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		values, files = form.Value, form.File
	} else {
		params, err := c.FormParams()
		if err != nil {
			return nil, err
		}
		values = params
	}

	headers := parseMessageHeaders(values.Get("message-headers"))
	field := func(names ...string) string {
		for _, n := range names {
			if v := strings.TrimSpace(values.Get(n)); v != "" {
				return v
			}
		}
		for _, n := range names {
			if v := headers[strings.ToLower(n)]; v != "" {
				return v
			}
		}
		return ""
	}

	mail := &services.InboundMail{
		Sender:     field("sender", "from", "From"),
		Recipient:  field("recipient", "To"),
		Subject:    field("subject", "Subject"),
		BodyHTML:   values.Get("body-html"),
		BodyPlain:  values.Get("body-plain"),
		MessageID:  validator.NormalizeMessageID(field("Message-Id", "message-id")),
		InReplyTo:  field("In-Reply-To", "in-reply-to"),
		References: validator.ParseMessageIDs(field("References", "references")),
	}
	if raw := values.Get("content-id-map"); raw != "" {
		cids := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &cids); err != nil {
			h.logger.Warn("invalid content-id-map", slog.Any("error", err))
		} else {
			mail.ContentIDMap = cids
		}
	}

	fields := make([]string, 0, len(files))
	for name := range files {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	for _, name := range fields {
		for _, fh := range files[name] {
			part, err := readPart(name, fh)
			if err != nil {
				h.logger.Warn("failed to read inbound attachment",
					slog.String("field", name),
					slog.String("filename", fh.Filename),
					slog.Any("error", err))
				continue
			}
			mail.Parts = append(mail.Parts, part)
		}
	}
	return mail, nil
}

// parseMessageHeaders decodes Mailgun's message-headers field, a JSON list of
// [name, value] pairs, into a map keyed by lower-cased name. The first
// occurrence of a header wins.
func parseMessageHeaders(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	var pairs [][]string
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return out
	}
	for _, p := range pairs {
		if len(p) != 2 {
			continue
		}
		key := strings.ToLower(p[0])
		if _, ok := out[key]; !ok {
			out[key] = strings.TrimSpace(p[1])
		}
	}
	return out
}

type eventSignature struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Token     string          `json:"token"`
	Signature string          `json:"signature"`
}

type eventEnvelope struct {
	Signature *eventSignature `json:"signature"`
	EventData json.RawMessage `json:"event-data"`
}

type eventData struct {
	Event     string `json:"event"`
	Recipient string `json:"recipient"`
	ID        string `json:"id"`
	Message   struct {
		Headers struct {
			MessageID string `json:"message-id"`
		} `json:"headers"`
	} `json:"message"`
}

// Events handles POST /api/emails/events. It always answers 200: malformed or
// unsigned deliveries are logged and dropped.
func (h *WebhookHandler) Events(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxEventPayloadSize))
	if err != nil {
		h.logger.Warn("unreadable event webhook", slog.Any("error", err))
		return response.Acknowledge(c)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		h.logger.Warn("event webhook is not JSON", slog.Any("error", err))
		return response.Acknowledge(c)
	}
	if err := h.schema.Validate(inst); err != nil {
		h.logger.Warn("event webhook rejected by schema", slog.Any("error", err))
		return response.Acknowledge(c)
	}

	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.logger.Warn("event webhook decode failed", slog.Any("error", err))
		return response.Acknowledge(c)
	}

	if h.signingKey != "" {
		if env.Signature == nil || !middleware.VerifyMailgunSignature(h.signingKey,
			strings.Trim(string(env.Signature.Timestamp), `"`), env.Signature.Token, env.Signature.Signature) {
			h.security.InvalidSignature(c.RealIP(), c.Path(), "mailgun event signature mismatch")
			return response.Acknowledge(c)
		}
	}

	var data eventData
	if err := json.Unmarshal(env.EventData, &data); err != nil {
		h.logger.Warn("event data decode failed", slog.Any("error", err))
		return response.Acknowledge(c)
	}

	externalID := validator.NormalizeMessageID(data.Message.Headers.MessageID)
	if externalID == "" {
		externalID = validator.NormalizeMessageID(data.ID)
	}
	h.events.Record(c.Request().Context(), externalID, data.Recipient, data.Event, env.EventData)
	return response.Acknowledge(c)
}
