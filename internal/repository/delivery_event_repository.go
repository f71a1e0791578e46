package repository

import (
	"context"
	"fmt"

	"github.com/welldanyogia/svp-backend/internal/models"
	"gorm.io/gorm"
)

// DeliveryEventRepository defines the interface for delivery event data access
type DeliveryEventRepository interface {
	Create(ctx context.Context, event *models.DeliveryEvent) error
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]models.DeliveryEvent, error)
}

type deliveryEventRepository struct {
	db *gorm.DB
}

// NewDeliveryEventRepository creates a new DeliveryEventRepository instance
func NewDeliveryEventRepository(db *gorm.DB) DeliveryEventRepository {
	return &deliveryEventRepository{db: db}
}

// Create appends a delivery event
func (r *deliveryEventRepository) Create(ctx context.Context, event *models.DeliveryEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create delivery event: %w", err)
	}
	return nil
}

// ListByExternalIDs retrieves the events of the given messages, oldest first
func (r *deliveryEventRepository) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]models.DeliveryEvent, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var events []models.DeliveryEvent
	result := r.db.WithContext(ctx).
		Where("external_id IN ?", externalIDs).
		Order("occurred_at ASC").
		Order("id ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list delivery events: %w", result.Error)
	}
	return events, nil
}
