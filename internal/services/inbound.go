package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// Inbound defaults
const (
	DefaultInboundBody      = "<p>Sem conteúdo</p>"
	DefaultInboundRecipient = "Sistema"
)

// InboundMail is a transport-neutral inbound message, built by the webhook
// handler or the SMTP session
type InboundMail struct {
	Sender     string
	Recipient  string
	Subject    string
	BodyHTML   string
	BodyPlain  string
	MessageID  string
	InReplyTo  string
	References []string
	Parts      []InboundPart
	// ContentIDMap maps content ids to part field names
	ContentIDMap map[string]string
}

// IsEmpty reports whether the delivery carries nothing to store
func (m *InboundMail) IsEmpty() bool {
	if m == nil {
		return true
	}
	return len(m.Parts) == 0 &&
		strings.TrimSpace(m.Sender) == "" &&
		strings.TrimSpace(m.Subject) == "" &&
		strings.TrimSpace(m.BodyHTML) == "" &&
		strings.TrimSpace(m.BodyPlain) == "" &&
		strings.TrimSpace(m.MessageID) == ""
}

func (m *InboundMail) body() string {
	if strings.TrimSpace(m.BodyHTML) != "" {
		return m.BodyHTML
	}
	if strings.TrimSpace(m.BodyPlain) != "" {
		return strings.ReplaceAll(html.EscapeString(m.BodyPlain), "\n", "<br>")
	}
	return DefaultInboundBody
}

// Outcome is how an inbound delivery was settled. Every outcome is
// acknowledged to the sender; only errors ask for a retry.
type Outcome string

const (
	OutcomeStored        Outcome = "stored"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeUnknownSender Outcome = "unknown_sender"
	OutcomeEmpty         Outcome = "empty"
)

// ReceiveResult reports the outcome and, when stored, where the message went
type ReceiveResult struct {
	Outcome   Outcome         `json:"outcome"`
	ThreadID  uint            `json:"thread_id,omitempty"`
	MessageID uint            `json:"message_id,omitempty"`
	Message   *models.Message `json:"-"`
}

// InboundMailService runs the ingestion pipeline: idempotency, correlation,
// attachment materialization and persistence in one transaction, then
// real-time publication and notification fan-out after commit
type InboundMailService struct {
	store        repository.Store
	guard        *IdempotencyGuard
	correlator   *Correlator
	materializer *Materializer
	notifier     *Notifier
	publisher    Publisher
	logger       *slog.Logger
}

// NewInboundMailService creates a new InboundMailService
func NewInboundMailService(store repository.Store, materializer *Materializer, notifier *Notifier, publisher Publisher, logger *slog.Logger) *InboundMailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InboundMailService{
		store:        store,
		guard:        NewIdempotencyGuard(),
		correlator:   NewCorrelator(logger),
		materializer: materializer,
		notifier:     notifier,
		publisher:    publisherOrNop(publisher),
		logger:       logger,
	}
}

// Receive ingests one delivery. A returned error means the transaction was
// rolled back and the delivery should be retried.
func (s *InboundMailService) Receive(ctx context.Context, mail *InboundMail) (*ReceiveResult, error) {
	if mail.IsEmpty() {
		return &ReceiveResult{Outcome: OutcomeEmpty}, nil
	}

	externalID := validator.NormalizeMessageID(mail.MessageID)
	sender := validator.ExtractAddress(mail.Sender)
	recipient := strings.TrimSpace(mail.Recipient)
	if recipient == "" {
		recipient = DefaultInboundRecipient
	}

	var (
		materialized MaterializeResult
		corr         *Correlation
		message      *models.Message
	)

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		ok, err := s.guard.ShouldProcess(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrDuplicateDelivery
		}

		corr, err = s.correlator.Correlate(ctx, tx, CorrelationInput{
			Sender:     mail.Sender,
			Subject:    mail.Subject,
			InReplyTo:  mail.InReplyTo,
			References: mail.References,
		})
		if err != nil {
			return err
		}

		materialized = s.materializer.Materialize(mail.Parts, mail.body(), mail.ContentIDMap)

		message = &models.Message{
			ThreadID:  corr.Thread.ID,
			Sender:    sender,
			Recipient: recipient,
			BodyHTML:  materialized.Body,
			Direction: models.DirectionReceived,
			SentAt:    time.Now(),
		}
		if externalID != "" {
			message.ExternalID = &externalID
		}

		err = tx.Messages().CreateWithAttachments(ctx, message, materialized.Attachments())
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return apperrors.ErrDuplicateDelivery
		}
		return err
	})

	if err != nil {
		s.materializer.Discard(materialized)

		switch {
		case errors.Is(err, apperrors.ErrDuplicateDelivery):
			s.logger.Info("duplicate delivery acknowledged", slog.String("external_id", externalID))
			return &ReceiveResult{Outcome: OutcomeDuplicate}, nil
		case errors.Is(err, apperrors.ErrUnknownSender):
			s.logger.Info("message from unknown sender ignored", slog.String("sender", sender))
			return &ReceiveResult{Outcome: OutcomeUnknownSender}, nil
		default:
			s.logger.Error("inbound message rolled back",
				slog.String("external_id", externalID),
				slog.String("sender", sender),
				slog.Any("error", err))
			return nil, fmt.Errorf("receive inbound message: %w", err)
		}
	}

	s.logger.Info("inbound message stored",
		slog.Uint64("thread_id", uint64(corr.Thread.ID)),
		slog.Uint64("message_id", uint64(message.ID)),
		slog.String("external_id", externalID),
		slog.Int("attachments", len(message.Attachments)))

	s.afterCommit(context.WithoutCancel(ctx), corr.Thread.ID, mail.Subject, message)

	return &ReceiveResult{
		Outcome:   OutcomeStored,
		ThreadID:  corr.Thread.ID,
		MessageID: message.ID,
		Message:   message,
	}, nil
}

func (s *InboundMailService) afterCommit(ctx context.Context, threadID uint, subject string, message *models.Message) {
	s.publisher.Publish(ThreadChannel(threadID), EventNewThreadMessage, message)

	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.NotifyNewInboundMessage(ctx, threadID, subject); err != nil {
		s.logger.Error("notification fan-out failed",
			slog.Uint64("thread_id", uint64(threadID)),
			slog.Any("error", err))
	}
}
