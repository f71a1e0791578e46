package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// DefaultThreadSubject is used for threads opened by a message without subject
const DefaultThreadSubject = "Nova Mensagem"

// CorrelationInput carries the headers used to place an inbound message
type CorrelationInput struct {
	Sender     string
	Subject    string
	InReplyTo  string
	References []string
}

// Correlation is the thread an inbound message belongs to
type Correlation struct {
	Thread *models.Thread
	// Created is set when the directory path opened a new thread
	Created bool
	// ViaReply is set when the thread was found through reply headers
	ViaReply bool
}

// Correlator resolves the thread of an inbound message, by reply headers first
// and by the sender's contact record second
type Correlator struct {
	logger *slog.Logger
}

// NewCorrelator creates a new Correlator
func NewCorrelator(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{logger: logger}
}

// Correlate finds or creates the thread for in and moves it to answered. Reply
// headers that resolve to a closed thread count as unresolved. An unknown
// sender with no resolvable reply header yields ErrUnknownSender.
func (c *Correlator) Correlate(ctx context.Context, tx repository.Store, in CorrelationInput) (*Correlation, error) {
	for _, id := range replyCandidates(in) {
		threadID, err := tx.Messages().FindThreadIDByExternalID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		thread, err := tx.Threads().GetByID(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if thread.Status == models.ThreadStatusClosed {
			c.logger.Info("reply header points at a closed thread",
				slog.String("external_id", id),
				slog.Uint64("thread_id", uint64(thread.ID)))
			continue
		}
		if err := advance(ctx, tx, thread, models.ThreadEventInbound, c.logger); err != nil {
			return nil, err
		}
		return &Correlation{Thread: thread, ViaReply: true}, nil
	}

	sender := validator.ExtractAddress(in.Sender)
	contact, err := tx.Contacts().FindByAddress(ctx, sender)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSender, sender)
	}
	if err != nil {
		return nil, err
	}

	thread, err := tx.Threads().FindActiveForContact(ctx, contact.ID)
	if errors.Is(err, repository.ErrNotFound) {
		subject := validator.SanitizeString(in.Subject, 500)
		if subject == "" {
			subject = DefaultThreadSubject
		}
		thread = &models.Thread{
			ContactID:      contact.ID,
			InitialSubject: subject,
			Status:         models.ThreadStatusAnswered,
		}
		if err := tx.Threads().Create(ctx, thread); err != nil {
			return nil, err
		}
		return &Correlation{Thread: thread, Created: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := advance(ctx, tx, thread, models.ThreadEventInbound, c.logger); err != nil {
		return nil, err
	}
	return &Correlation{Thread: thread}, nil
}

// replyCandidates lists the external ids to try: In-Reply-To, then References
// newest first
func replyCandidates(in CorrelationInput) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		id := validator.NormalizeMessageID(raw)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, id := range validator.ParseMessageIDs(in.InReplyTo) {
		add(id)
	}
	if len(out) == 0 && strings.TrimSpace(in.InReplyTo) != "" {
		add(in.InReplyTo)
	}
	for i := len(in.References) - 1; i >= 0; i-- {
		add(in.References[i])
	}
	return out
}

// advance applies ev to thread and persists the new status. A closed thread
// keeps its status; the caller still stores whatever triggered the event.
func advance(ctx context.Context, tx repository.Store, thread *models.Thread, ev models.ThreadEvent, logger *slog.Logger) error {
	next, err := thread.Status.Transition(ev)
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		logger.Info("thread status unchanged",
			slog.Uint64("thread_id", uint64(thread.ID)),
			slog.String("status", string(thread.Status)),
			slog.String("event", string(ev)))
		return nil
	}
	if err != nil {
		return err
	}
	if next == thread.Status {
		return nil
	}
	if err := tx.Threads().UpdateStatus(ctx, thread.ID, next); err != nil {
		return err
	}
	thread.Status = next
	return nil
}
