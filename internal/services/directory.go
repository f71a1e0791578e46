package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/welldanyogia/svp-backend/internal/access"
	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// DirectoryService manages the e-mail contacts registered for a unit
type DirectoryService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(store repository.Store, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{store: store, logger: logger}
}

// Contacts lists a unit's contacts
func (d *DirectoryService) Contacts(ctx context.Context, viewer access.Viewer, unitID uint) ([]models.Contact, error) {
	if _, err := d.unit(ctx, d.store, viewer, unitID); err != nil {
		return nil, err
	}
	contacts, err := d.store.Contacts().ListByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return contacts, nil
}

// ReplaceContacts re-imports a unit's contact list. Every address must be valid;
// duplicates collapse.
func (d *DirectoryService) ReplaceContacts(ctx context.Context, viewer access.Viewer, unitID uint, emails []string) ([]models.Contact, error) {
	seen := make(map[string]bool, len(emails))
	clean := make([]string, 0, len(emails))
	for _, raw := range emails {
		addr := validator.ExtractAddress(raw)
		if err := validator.ValidateEmail(addr); err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidInput,
				fmt.Sprintf("invalid e-mail %q", raw), apperrors.CodeInvalidInput)
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		clean = append(clean, addr)
	}

	var contacts []models.Contact
	err := d.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := d.unit(ctx, tx, viewer, unitID); err != nil {
			return err
		}
		var err error
		contacts, err = tx.Contacts().ReplaceForUnit(ctx, unitID, clean)
		return err
	})
	if err != nil {
		return nil, err
	}

	if d.logger != nil {
		d.logger.Info("unit contacts replaced",
			slog.Uint64("unit_id", uint64(unitID)),
			slog.Int("contacts", len(contacts)))
	}
	return contacts, nil
}

func (d *DirectoryService) unit(ctx context.Context, store repository.Store, viewer access.Viewer, unitID uint) (*models.Unit, error) {
	unit, err := store.Units().GetByID(ctx, unitID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewAppError(apperrors.ErrNotFound, "unit not found", apperrors.CodeNotFound)
	}
	if err != nil {
		return nil, err
	}
	var portfolio *string
	if unit.Condominium != nil {
		portfolio = unit.Condominium.Portfolio
	}
	if !access.IsEntitled(viewer, portfolio) {
		return nil, apperrors.ErrForbidden
	}
	return unit, nil
}
