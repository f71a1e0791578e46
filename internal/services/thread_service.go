package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/welldanyogia/svp-backend/internal/access"
	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
	"github.com/welldanyogia/svp-backend/internal/mailer"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// ReplyInput is an operator reply. Text is HTML from the operator's editor.
type ReplyInput struct {
	Text  string
	Files []InboundPart
}

// AuthorizationRequest asks a condominium's manager to authorize an action on a unit
type AuthorizationRequest struct {
	UnitID  uint   `json:"unidadeId"`
	Subject string `json:"assunto"`
	Body    string `json:"mensagem"`
}

// ThreadService is the operator side of threads: the entitlement-scoped read
// path and the actions that send mail
type ThreadService struct {
	store        repository.Store
	sender       mailer.Sender
	materializer *Materializer
	publisher    Publisher
	fromAddress  string
	logger       *slog.Logger
}

// NewThreadService creates a new ThreadService. fromAddress is recorded as the
// sender of outbound messages.
func NewThreadService(store repository.Store, sender mailer.Sender, materializer *Materializer, publisher Publisher, fromAddress string, logger *slog.Logger) *ThreadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreadService{
		store:        store,
		sender:       sender,
		materializer: materializer,
		publisher:    publisherOrNop(publisher),
		fromAddress:  validator.ExtractAddress(fromAddress),
		logger:       logger,
	}
}

// List returns the threads visible to viewer, answered ones first
func (s *ThreadService) List(ctx context.Context, viewer access.Viewer) ([]models.ThreadContext, error) {
	scope := access.ScopeFor(viewer)
	if scope.Empty() {
		return []models.ThreadContext{}, nil
	}
	threads, err := s.store.Threads().List(ctx, scope)
	if err != nil {
		return nil, err
	}
	if threads == nil {
		threads = []models.ThreadContext{}
	}
	return threads, nil
}

// CountAnswered counts the answered threads visible to viewer
func (s *ThreadService) CountAnswered(ctx context.Context, viewer access.Viewer) (int64, error) {
	scope := access.ScopeFor(viewer)
	if scope.Empty() {
		return 0, nil
	}
	return s.store.Threads().CountByStatus(ctx, scope, models.ThreadStatusAnswered)
}

// Get returns a thread with its messages oldest first
func (s *ThreadService) Get(ctx context.Context, viewer access.Viewer, id uint) (*models.ThreadDetail, error) {
	tc, err := s.authorize(ctx, s.store, viewer, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.Messages().ListByThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &models.ThreadDetail{Thread: *tc, Messages: messages}, nil
}

// CanView reports whether viewer may see the thread
func (s *ThreadService) CanView(ctx context.Context, viewer access.Viewer, id uint) bool {
	_, err := s.authorize(ctx, s.store, viewer, id)
	return err == nil
}

// MarkRead acknowledges an answered thread
func (s *ThreadService) MarkRead(ctx context.Context, viewer access.Viewer, id uint) (models.ThreadStatus, error) {
	return s.apply(ctx, viewer, id, models.ThreadEventOperatorRead)
}

// Close closes a thread. Only elevated roles may close.
func (s *ThreadService) Close(ctx context.Context, viewer access.Viewer, id uint) (models.ThreadStatus, error) {
	if !access.IsElevated(viewer.Role) {
		return "", apperrors.ErrForbidden
	}
	return s.apply(ctx, viewer, id, models.ThreadEventClose)
}

func (s *ThreadService) apply(ctx context.Context, viewer access.Viewer, id uint, ev models.ThreadEvent) (models.ThreadStatus, error) {
	var status models.ThreadStatus
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.authorize(ctx, tx, viewer, id); err != nil {
			return err
		}
		thread, err := tx.Threads().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := advance(ctx, tx, thread, ev, s.logger); err != nil {
			return err
		}
		status = thread.Status
		return nil
	})
	return status, err
}

// Reply sends an operator reply threaded under the newest message carrying an
// external id, then stores it as an outbound message and reopens the thread.
// Nothing is stored when the transport fails.
func (s *ThreadService) Reply(ctx context.Context, viewer access.Viewer, id uint, in ReplyInput) (*models.Message, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Files) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "reply text or attachment is required", apperrors.CodeInvalidInput)
	}

	tc, err := s.authorize(ctx, s.store, viewer, id)
	if err != nil {
		return nil, err
	}

	out := &mailer.Outgoing{
		To:      []string{tc.ContactEmail},
		Subject: "Re: " + tc.InitialSubject,
		HTML:    in.Text,
	}
	last, err := s.store.Messages().LatestWithExternalID(ctx, id)
	switch {
	case err == nil:
		out.InReplyTo = *last.ExternalID
		out.References = []string{*last.ExternalID}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	materialized := s.materializer.Materialize(in.Files, in.Text, nil)
	for _, f := range in.Files {
		out.Attachments = append(out.Attachments, mailer.Attachment{
			FileName:    DecodeFilename(f.FileName),
			ContentType: mimeTypeOf(f.ContentType, f.FileName),
			Content:     f.Data,
		})
	}

	externalID, err := s.sender.Send(ctx, out)
	if err != nil {
		s.materializer.Discard(materialized)
		s.logger.Error("reply not sent",
			slog.Uint64("thread_id", uint64(id)),
			slog.Any("error", err))
		return nil, err
	}

	message := &models.Message{
		ThreadID:  id,
		Sender:    s.fromAddress,
		Recipient: tc.ContactEmail,
		BodyHTML:  in.Text,
		Direction: models.DirectionSent,
		SentAt:    time.Now(),
	}
	if externalID = validator.NormalizeMessageID(externalID); externalID != "" {
		message.ExternalID = &externalID
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Messages().CreateWithAttachments(ctx, message, materialized.Attachments()); err != nil {
			return err
		}
		thread, err := tx.Threads().GetByID(ctx, id)
		if err != nil {
			return err
		}
		return advance(ctx, tx, thread, models.ThreadEventOperatorReply, s.logger)
	})
	if err != nil {
		s.materializer.Discard(materialized)
		s.logger.Error("reply sent but not stored",
			slog.Uint64("thread_id", uint64(id)),
			slog.String("external_id", externalID),
			slog.Any("error", err))
		return nil, fmt.Errorf("store reply: %w", err)
	}

	s.logger.Info("reply sent",
		slog.Uint64("thread_id", uint64(id)),
		slog.Uint64("message_id", uint64(message.ID)),
		slog.Uint64("user_id", uint64(viewer.UserID)))
	s.publisher.Publish(ThreadChannel(id), EventNewThreadMessage, message)
	return message, nil
}

// RequestAuthorization mails a condominium's managers about a unit and opens a
// thread for the conversation. The first listed manager address becomes the
// thread's contact.
func (s *ThreadService) RequestAuthorization(ctx context.Context, viewer access.Viewer, req AuthorizationRequest) (*models.Thread, error) {
	subject := validator.SanitizeString(req.Subject, 500)
	if req.UnitID == 0 || subject == "" || strings.TrimSpace(req.Body) == "" {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "unit, subject and body are required", apperrors.CodeInvalidInput)
	}

	unit, err := s.store.Units().GetByID(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	if unit.Condominium == nil || !access.IsEntitled(viewer, unit.Condominium.Portfolio) {
		return nil, apperrors.ErrForbidden
	}

	recipients := validator.SplitAddressList(unit.Condominium.ManagerEmail)
	if len(recipients) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "condominium has no manager e-mail", apperrors.CodeInvalidInput)
	}

	externalID, err := s.sender.Send(ctx, &mailer.Outgoing{
		To:      recipients,
		Subject: subject,
		HTML:    req.Body,
	})
	if err != nil {
		return nil, err
	}
	externalID = validator.NormalizeMessageID(externalID)

	var thread *models.Thread
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		contact, err := tx.Contacts().GetOrCreate(ctx, unit.ID, recipients[0])
		if err != nil {
			return err
		}
		thread = &models.Thread{
			ContactID:      contact.ID,
			InitialSubject: subject,
			Status:         models.ThreadStatusOpen,
		}
		if err := tx.Threads().Create(ctx, thread); err != nil {
			return err
		}
		message := &models.Message{
			ThreadID:  thread.ID,
			Sender:    s.fromAddress,
			Recipient: recipients[0],
			BodyHTML:  req.Body,
			Direction: models.DirectionSent,
			SentAt:    time.Now(),
		}
		if externalID != "" {
			message.ExternalID = &externalID
		}
		return tx.Messages().Create(ctx, message)
	})
	if err != nil {
		s.logger.Error("authorization request sent but not stored",
			slog.Uint64("unit_id", uint64(unit.ID)),
			slog.String("external_id", externalID),
			slog.Any("error", err))
		return nil, fmt.Errorf("store authorization request: %w", err)
	}

	s.logger.Info("authorization requested",
		slog.Uint64("thread_id", uint64(thread.ID)),
		slog.Uint64("unit_id", uint64(unit.ID)),
		slog.Int("recipients", len(recipients)))
	return thread, nil
}

// Attachment returns an attachment of a thread the viewer may see
func (s *ThreadService) Attachment(ctx context.Context, viewer access.Viewer, id uint) (*models.Attachment, error) {
	att, err := s.store.Attachments().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	msg, err := s.store.Messages().GetByID(ctx, att.MessageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, s.store, viewer, msg.ThreadID); err != nil {
		return nil, err
	}
	return att, nil
}

// authorize loads the thread context and checks viewer's entitlement to it
func (s *ThreadService) authorize(ctx context.Context, store repository.Store, viewer access.Viewer, id uint) (*models.ThreadContext, error) {
	tc, err := store.Threads().GetContext(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	if !access.IsEntitled(viewer, tc.Portfolio) {
		return nil, apperrors.ErrForbidden
	}
	return tc, nil
}
