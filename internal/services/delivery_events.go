package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// NormalizeEventKind maps a provider event name to its stored kind. Names are
// matched exactly; anything else is kept verbatim.
func NormalizeEventKind(raw string) models.DeliveryEventKind {
	switch raw {
	case "accepted":
		return models.EventProcessed
	case "delivered":
		return models.EventDelivered
	case "opened":
		return models.EventOpened
	case "failed", "complained", "unsubscribed":
		return models.EventFailed
	}
	return models.DeliveryEventKind(raw)
}

// DeliveryEventRecorder appends provider lifecycle events and summarizes them
// per sent message
type DeliveryEventRecorder struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewDeliveryEventRecorder creates a new DeliveryEventRecorder
func NewDeliveryEventRecorder(store repository.Store, logger *slog.Logger) *DeliveryEventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryEventRecorder{store: store, logger: logger, now: time.Now}
}

// Record appends one event. Failures are logged; the provider is always
// acknowledged.
func (r *DeliveryEventRecorder) Record(ctx context.Context, externalID, recipient, rawKind string, payload []byte) {
	event := models.DeliveryEvent{
		ExternalID: validator.NormalizeMessageID(externalID),
		Recipient:  strings.TrimSpace(recipient),
		Kind:       NormalizeEventKind(rawKind),
		OccurredAt: r.now(),
		Payload:    string(payload),
	}
	if err := r.store.DeliveryEvents().Create(ctx, &event); err != nil {
		r.logger.Error("failed to record delivery event",
			slog.String("external_id", event.ExternalID),
			slog.String("kind", string(event.Kind)),
			slog.Any("error", err))
		return
	}
	r.logger.Debug("delivery event recorded",
		slog.String("external_id", event.ExternalID),
		slog.String("kind", string(event.Kind)))
}

// Report lists the most recent sent messages visible to viewer with the latest
// timestamp of each event kind and the latest error payload
func (r *DeliveryEventRecorder) Report(ctx context.Context, viewer access.Viewer, filter repository.OutboundFilter) ([]models.DeliveryReportItem, error) {
	rows, err := r.store.Messages().ListRecentOutbound(ctx, access.ScopeFor(viewer), filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.ExternalID != nil && *row.ExternalID != "" {
			ids = append(ids, *row.ExternalID)
		}
	}
	events, err := r.store.DeliveryEvents().ListByExternalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]*models.DeliveryStatus, len(ids))
	for i := range events {
		ev := events[i]
		st, ok := statuses[ev.ExternalID]
		if !ok {
			st = &models.DeliveryStatus{}
			statuses[ev.ExternalID] = st
		}
		at := ev.OccurredAt
		switch ev.Kind {
		case models.EventProcessed:
			st.Processed = latest(st.Processed, at)
		case models.EventDelivered:
			st.Delivered = latest(st.Delivered, at)
		case models.EventOpened:
			st.Opened = latest(st.Opened, at)
		case models.EventFailed:
			payload := ev.Payload
			st.Error = &payload
		}
	}

	items := make([]models.DeliveryReportItem, 0, len(rows))
	for _, row := range rows {
		item := models.DeliveryReportItem{
			MessageID: row.MessageID,
			Recipient: row.Recipient,
			Unit:      row.UnitNumber,
			Subject:   row.Subject,
			SentAt:    row.SentAt,
		}
		if row.ExternalID != nil {
			item.ExternalID = *row.ExternalID
			if st, ok := statuses[*row.ExternalID]; ok {
				item.Status = *st
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func latest(cur *time.Time, at time.Time) *time.Time {
	if cur == nil || at.After(*cur) {
		return &at
	}
	return cur
}
