package services

import (
	"context"
	"fmt"

	"github.com/welldanyogia/svp-backend/internal/repository"
)

// IdempotencyGuard decides whether an inbound delivery is new. It must be called
// with the Store of the transaction that will insert the message; the unique
// index on messages.external_id settles deliveries that race past the check.
type IdempotencyGuard struct{}

// NewIdempotencyGuard creates a new IdempotencyGuard
func NewIdempotencyGuard() *IdempotencyGuard {
	return &IdempotencyGuard{}
}

// ShouldProcess reports whether the delivery carrying externalID must be
// processed. Deliveries without an id cannot be deduplicated and always pass.
func (g *IdempotencyGuard) ShouldProcess(ctx context.Context, tx repository.Store, externalID string) (bool, error) {
	if externalID == "" {
		return true, nil
	}
	exists, err := tx.Messages().ExistsByExternalID(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	return !exists, nil
}
