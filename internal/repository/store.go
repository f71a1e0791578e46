package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store is the single data-access entry point. Repositories obtained from the
// Store passed to a Transaction callback run inside that transaction.
type Store interface {
	Contacts() ContactRepository
	Units() UnitRepository
	Users() UserRepository
	Threads() ThreadRepository
	Messages() MessageRepository
	Attachments() AttachmentRepository
	DeliveryEvents() DeliveryEventRepository
	Notifications() NotificationRepository

	// Transaction commits when fn returns nil and rolls back when it returns
	// an error or panics.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// store implements Store on a *gorm.DB that is either the pool or an open transaction
type store struct {
	db *gorm.DB
}

// NewStore creates a new Store instance
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Contacts() ContactRepository { return NewContactRepository(s.db) }
func (s *store) Units() UnitRepository { return NewUnitRepository(s.db) }
func (s *store) Users() UserRepository { return NewUserRepository(s.db) }
func (s *store) Threads() ThreadRepository { return NewThreadRepository(s.db) }
func (s *store) Messages() MessageRepository { return NewMessageRepository(s.db) }
func (s *store) Attachments() AttachmentRepository { return NewAttachmentRepository(s.db) }
func (s *store) DeliveryEvents() DeliveryEventRepository { return NewDeliveryEventRepository(s.db) }
func (s *store) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }

// Transaction runs fn inside a gorm transaction
func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}
