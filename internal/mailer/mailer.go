// Package mailer sends operator mail over SMTP. Messages are built with enmime
// and carry a locally generated Message-Id so replies can be correlated.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/mail"
	"strconv"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
)

// Attachment is a file sent along with an outgoing message
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Outgoing is a message to send
type Outgoing struct {
	To          []string
	Subject     string
	HTML        string
	InReplyTo   string
	References  []string
	Attachments []Attachment
}

// Sender delivers outgoing mail and returns the Message-Id it was sent with,
// without angle brackets
type Sender interface {
	Send(ctx context.Context, msg *Outgoing) (string, error)
}

// Config holds outbound SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ReplyTo  string
}

type sendFunc func(addr string, auth sasl.Client, from string, to []string, r io.Reader) error

// SMTPSender implements Sender with go-smtp
type SMTPSender struct {
	cfg    Config
	send   sendFunc
	logger *slog.Logger
}

// NewSMTPSender creates a new SMTPSender
func NewSMTPSender(cfg Config, logger *slog.Logger) *SMTPSender {
	send := smtp.SendMail
	if cfg.Port == 465 {
		send = func(addr string, auth sasl.Client, from string, to []string, r io.Reader) error {
			return smtp.SendMailTLS(addr, auth, from, to, r)
		}
	}
	return &SMTPSender{cfg: cfg, send: send, logger: logger}
}

// Build renders msg as RFC 5322 bytes and returns its Message-Id
func (s *SMTPSender) Build(msg *Outgoing) (string, []byte, error) {
	from, err := mail.ParseAddress(s.cfg.From)
	if err != nil {
		return "", nil, fmt.Errorf("invalid sender address %q: %w", s.cfg.From, err)
	}
	if len(msg.To) == 0 {
		return "", nil, fmt.Errorf("%w: no recipients", apperrors.ErrInvalidInput)
	}

	domain := "localhost"
	if at := strings.LastIndex(from.Address, "@"); at >= 0 {
		domain = from.Address[at+1:]
	}
	messageID := uuid.NewString() + "@" + domain

	b := enmime.Builder().
		From(from.Name, from.Address).
		Subject(msg.Subject).
		HTML([]byte(msg.HTML)).
		Header("Message-Id", "<"+messageID+">")
	for _, to := range msg.To {
		b = b.To("", to)
	}
	if s.cfg.ReplyTo != "" {
		b = b.ReplyTo("", s.cfg.ReplyTo)
	}
	if msg.InReplyTo != "" {
		b = b.Header("In-Reply-To", "<"+msg.InReplyTo+">")
	}
	if len(msg.References) > 0 {
		refs := make([]string, len(msg.References))
		for i, r := range msg.References {
			refs[i] = "<" + r + ">"
		}
		b = b.Header("References", strings.Join(refs, " "))
	}
	for _, a := range msg.Attachments {
		b = b.AddAttachment(a.Content, a.ContentType, a.FileName)
	}

	root, err := b.Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build message: %w", err)
	}
	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return "", nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return messageID, buf.Bytes(), nil
}

// Send delivers msg through the configured relay
func (s *SMTPSender) Send(ctx context.Context, msg *Outgoing) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID, raw, err := s.Build(msg)
	if err != nil {
		return "", err
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	from, _ := mail.ParseAddress(s.cfg.From)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, from.Address, msg.To, bytes.NewReader(raw)); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrMailTransport, err)
	}

	if s.logger != nil {
		s.logger.Info("mail sent",
			slog.String("external_id", messageID),
			slog.Int("recipients", len(msg.To)),
			slog.Int("attachments", len(msg.Attachments)))
	}
	return messageID, nil
}
