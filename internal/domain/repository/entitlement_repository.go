package repository

import (
	"context"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/google/uuid"
)

// OneTimeEntitlementRepository stores one-time purchase attempts
type OneTimeEntitlementRepository interface {
	Create(ctx context.Context, e *entity.OneTimeEntitlement) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.OneTimeEntitlement, error)
	GetBySessionID(ctx context.Context, sessionID string) (*entity.OneTimeEntitlement, error)

	// AttachSession sets the checkout session on a pending row that has none.
	// It reports false when no row was updated.
	AttachSession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error)

	// Settle moves a pending row to paid or failed. It reports false when the
	// row was not pending, leaving the caller to decide between no-op and conflict.
	Settle(ctx context.Context, id uuid.UUID, status entity.OneTimeStatus, settledAt time.Time, expiresAt *time.Time) (bool, error)

	// ListGranting returns paid rows of identity that have not expired at now.
	ListGranting(ctx context.Context, identityID uuid.UUID, now time.Time) ([]*entity.OneTimeEntitlement, error)

	ListByIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*entity.Purchase, int64, error)

	// ListPendingBefore returns pending rows with a session created before cutoff.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.OneTimeEntitlement, error)
}

// SubscriptionEntitlementRepository stores the subscription row of each identity
type SubscriptionEntitlementRepository interface {
	GetByIdentity(ctx context.Context, identityID uuid.UUID) (*entity.SubscriptionEntitlement, error)

	// Upsert writes s unless a row with a later LastEventAt exists.
	// It reports false for stale writes.
	Upsert(ctx context.Context, s *entity.SubscriptionEntitlement) (bool, error)
}
