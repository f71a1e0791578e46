package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/models"
	"gorm.io/gorm"
)

// OutboundFilter narrows the outbound message listing of the delivery report
type OutboundFilter struct {
	CondominiumID uint
	Recipient     string
	Subject       string
	Limit         int
}

// OutboundRow is one sent message with the unit it was addressed to
type OutboundRow struct {
	MessageID  uint
	Recipient  string
	UnitNumber string
	Subject    string
	SentAt     time.Time
	ExternalID *string
}

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.Attachment) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	FindThreadIDByExternalID(ctx context.Context, externalID string) (uint, error)
	ListByThread(ctx context.Context, threadID uint) ([]models.Message, error)
	LatestWithExternalID(ctx context.Context, threadID uint) (*models.Message, error)
	ListRecentOutbound(ctx context.Context, scope access.Scope, filter OutboundFilter) ([]OutboundRow, error)
}

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create creates a new message. A reused external id yields ErrDuplicateEntry.
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	result := r.db.WithContext(ctx).Omit("Attachments").Create(message)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create message: %w", result.Error)
	}
	return nil
}

// CreateWithAttachments creates a message with its attachments in a transaction
func (r *messageRepository) CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.Attachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Attachments").Create(message).Error; err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateEntry
			}
			return fmt.Errorf("failed to create message: %w", err)
		}

		for i := range attachments {
			attachments[i].MessageID = message.ID
			if err := tx.Create(&attachments[i]).Error; err != nil {
				return fmt.Errorf("failed to create attachment: %w", err)
			}
		}
		message.Attachments = attachments

		return nil
	})
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// GetByID retrieves a message by its ID with preloaded attachments
func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).Preload("Attachments", orderByID).First(&message, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", result.Error)
	}
	return &message, nil
}

// ExistsByExternalID reports whether a message with the external id is stored
func (r *messageRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Message{}).Where("external_id = ?", externalID).Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check external id: %w", result.Error)
	}
	return count > 0, nil
}

// FindThreadIDByExternalID returns the thread owning the message with the external id
func (r *messageRepository) FindThreadIDByExternalID(ctx context.Context, externalID string) (uint, error) {
	var message models.Message
	result := r.db.WithContext(ctx).Select("id", "thread_id").Where("external_id = ?", externalID).First(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to find message by external id: %w", result.Error)
	}
	return message.ThreadID, nil
}

// ListByThread retrieves a thread's messages oldest first, with attachments
func (r *messageRepository) ListByThread(ctx context.Context, threadID uint) ([]models.Message, error) {
	var messages []models.Message
	result := r.db.WithContext(ctx).
		Preload("Attachments", orderByID).
		Where("thread_id = ?", threadID).
		Order("sent_at ASC").
		Order("id ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list thread messages: %w", result.Error)
	}
	return messages, nil
}

// LatestWithExternalID returns the thread's newest message that has an external id
func (r *messageRepository) LatestWithExternalID(ctx context.Context, threadID uint) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).
		Where("thread_id = ? AND external_id IS NOT NULL AND external_id <> ''", threadID).
		Order("sent_at DESC").
		Order("id DESC").
		First(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find latest threaded message: %w", result.Error)
	}
	return &message, nil
}

// ListRecentOutbound lists the newest sent messages visible in scope
func (r *messageRepository) ListRecentOutbound(ctx context.Context, scope access.Scope, filter OutboundFilter) ([]OutboundRow, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	q := r.db.WithContext(ctx).
		Table("messages").
		Select(`messages.id AS message_id,
			messages.recipient,
			units.number AS unit_number,
			threads.initial_subject AS subject,
			messages.sent_at,
			messages.external_id`).
		Joins("JOIN threads ON threads.id = messages.thread_id").
		Joins(threadOwnerJoins).
		Where("messages.direction = ?", models.DirectionSent)
	q = withScope(q, scope)

	if filter.CondominiumID != 0 {
		q = q.Where("condominiums.id = ?", filter.CondominiumID)
	}
	if s := strings.TrimSpace(filter.Recipient); s != "" {
		q = q.Where("LOWER(messages.recipient) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(filter.Subject); s != "" {
		q = q.Where("LOWER(threads.initial_subject) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var rows []OutboundRow
	if err := q.Order("messages.sent_at DESC").Order("messages.id DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list outbound messages: %w", err)
	}
	return rows, nil
}
