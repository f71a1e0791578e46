package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/welldanyogia/svp-backend/internal/models"
	"gorm.io/gorm"
)

// ContactRepository defines the interface for contact directory access
type ContactRepository interface {
	FindByAddress(ctx context.Context, email string) (*models.Contact, error)
	ListByUnit(ctx context.Context, unitID uint) ([]models.Contact, error)
	ReplaceForUnit(ctx context.Context, unitID uint, emails []string) ([]models.Contact, error)
	GetOrCreate(ctx context.Context, unitID uint, email string) (*models.Contact, error)
}

// contactRepository implements ContactRepository using GORM
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository instance
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByAddress looks a contact up by e-mail, case-insensitively. When the
// address is registered for several units the oldest registration wins.
func (r *contactRepository) FindByAddress(ctx context.Context, email string) (*models.Contact, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}

	var contact models.Contact
	result := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", email).
		Order("id ASC").
		First(&contact)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find contact by address: %w", result.Error)
	}
	return &contact, nil
}

// ListByUnit retrieves every contact of a unit
func (r *contactRepository) ListByUnit(ctx context.Context, unitID uint) ([]models.Contact, error) {
	var contacts []models.Contact
	result := r.db.WithContext(ctx).Where("unit_id = ?", unitID).Order("id ASC").Find(&contacts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", result.Error)
	}
	return contacts, nil
}

// ReplaceForUnit makes the unit's contact list equal to emails. Contacts that
// stay keep their ids; removed contacts that still anchor threads are kept so
// the conversation history is not orphaned.
func (r *contactRepository) ReplaceForUnit(ctx context.Context, unitID uint, emails []string) ([]models.Contact, error) {
	wanted := make(map[string]bool, len(emails))
	var ordered []string
	for _, e := range emails {
		e = normalizeEmail(e)
		if e == "" || wanted[e] {
			continue
		}
		wanted[e] = true
		ordered = append(ordered, e)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Contact
		if err := tx.Where("unit_id = ?", unitID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load unit contacts: %w", err)
		}

		have := make(map[string]bool, len(existing))
		for _, c := range existing {
			addr := normalizeEmail(c.Email)
			have[addr] = true
			if wanted[addr] {
				continue
			}
			var threads int64
			if err := tx.Model(&models.Thread{}).Where("contact_id = ?", c.ID).Count(&threads).Error; err != nil {
				return fmt.Errorf("failed to count contact threads: %w", err)
			}
			if threads > 0 {
				continue
			}
			if err := tx.Delete(&models.Contact{}, c.ID).Error; err != nil {
				return fmt.Errorf("failed to delete contact: %w", err)
			}
		}

		for _, e := range ordered {
			if have[e] {
				continue
			}
			if err := tx.Create(&models.Contact{UnitID: unitID, Email: e}).Error; err != nil {
				return fmt.Errorf("failed to create contact: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.ListByUnit(ctx, unitID)
}

// GetOrCreate returns the unit's contact for email, creating it if absent
func (r *contactRepository) GetOrCreate(ctx context.Context, unitID uint, email string) (*models.Contact, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: empty contact address", ErrInvalidInput)
	}

	var contact models.Contact
	result := r.db.WithContext(ctx).
		Where("unit_id = ? AND LOWER(email) = ?", unitID, email).
		Order("id ASC").
		First(&contact)
	if result.Error == nil {
		return &contact, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up contact: %w", result.Error)
	}

	contact = models.Contact{UnitID: unitID, Email: email}
	if err := r.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return &contact, nil
}
