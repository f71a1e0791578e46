package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
)

// NotificationPageSize is how many notifications a user's listing returns
const NotificationPageSize = 20

const defaultNotificationSubject = "Nova mensagem"

// NotificationList is a user's recent notifications and unread count
type NotificationList struct {
	Items  []models.Notification `json:"items"`
	Unread int64                 `json:"unread"`
}

type replyPayload struct {
	models.Notification
	ThreadID uint `json:"comunicacaoId"`
}

// Notifier persists per-user notifications and pushes them to the users'
// real-time channels
type Notifier struct {
	store     repository.Store
	publisher Publisher
	logger    *slog.Logger
}

// NewNotifier creates a new Notifier
func NewNotifier(store repository.Store, publisher Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: store, publisher: publisherOrNop(publisher), logger: logger}
}

// NotifyNewInboundMessage notifies every user entitled to the thread's
// condominium. It returns the number of notifications stored; a failure for
// one recipient is logged and does not stop the others.
func (n *Notifier) NotifyNewInboundMessage(ctx context.Context, threadID uint, subject string) (int, error) {
	tc, err := n.store.Threads().GetContext(ctx, threadID)
	if err != nil {
		return 0, fmt.Errorf("resolve thread owner: %w", err)
	}
	users, err := n.store.Users().List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	owner := tc.OwnerName
	if owner == "" {
		owner = tc.ContactEmail
	}
	if strings.TrimSpace(subject) == "" {
		subject = defaultNotificationSubject
	}
	title := "Resposta de " + owner
	body := fmt.Sprintf("Unidade %s: %s", tc.UnitNumber, subject)
	link := fmt.Sprintf("/comunicacao/%d", threadID)

	sent := 0
	seen := make(map[uint]bool, len(users))
	for _, u := range users {
		if seen[u.ID] || !access.IsEntitled(access.ViewerOf(u), tc.Portfolio) {
			continue
		}
		seen[u.ID] = true

		notification := models.Notification{
			UserID: u.ID,
			Title:  title,
			Body:   body,
			Link:   &link,
			Kind:   models.NotificationKindInfo,
		}
		if err := n.store.Notifications().Create(ctx, &notification); err != nil {
			n.logger.Error("failed to store notification",
				slog.Uint64("user_id", uint64(u.ID)),
				slog.Uint64("thread_id", uint64(threadID)),
				slog.Any("error", err))
			continue
		}
		n.push(notification, threadID)
		sent++
	}

	n.logger.Debug("notifications fanned out",
		slog.Uint64("thread_id", uint64(threadID)),
		slog.Int("recipients", sent))
	return sent, nil
}

func (n *Notifier) push(notification models.Notification, threadID uint) {
	channel := UserChannel(notification.UserID)
	n.publisher.Publish(channel, EventNewNotification, notification)
	if notification.Link != nil && strings.Contains(*notification.Link, "/comunicacao/") {
		n.publisher.Publish(channel, EventNewReply, replyPayload{Notification: notification, ThreadID: threadID})
	}
}

// List returns the user's most recent notifications, unread first
func (n *Notifier) List(ctx context.Context, userID uint) (*NotificationList, error) {
	items, err := n.store.Notifications().ListByUser(ctx, userID, NotificationPageSize)
	if err != nil {
		return nil, err
	}
	unread, err := n.store.Notifications().CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &NotificationList{Items: items, Unread: unread}, nil
}

// MarkRead marks one of the user's notifications read. Notifications of other
// users are reported as not found.
func (n *Notifier) MarkRead(ctx context.Context, userID, id uint) error {
	return n.store.Notifications().MarkRead(ctx, userID, id)
}

// MarkAllRead marks all of the user's notifications read
func (n *Notifier) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return n.store.Notifications().MarkAllRead(ctx, userID)
}
