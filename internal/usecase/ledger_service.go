package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAccessWindow is how long a one-time unlock lasts after settlement.
const DefaultAccessWindow = 30 * 24 * time.Hour

// LedgerService is the durable record of purchase attempts and subscriptions
type LedgerService struct {
	categories   domainRepo.CategoryRepository
	oneTime      domainRepo.OneTimeEntitlementRepository
	subscription domainRepo.SubscriptionEntitlementRepository
	accessWindow time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	categories domainRepo.CategoryRepository,
	oneTime domainRepo.OneTimeEntitlementRepository,
	subscription domainRepo.SubscriptionEntitlementRepository,
	accessWindow time.Duration,
	logger *zap.Logger,
) *LedgerService {
	if accessWindow <= 0 {
		accessWindow = DefaultAccessWindow
	}
	return &LedgerService{
		categories:   categories,
		oneTime:      oneTime,
		subscription: subscription,
		accessWindow: accessWindow,
		now:          utcNow,
		logger:       logger,
	}
}

// WithClock replaces the clock used for expiry checks
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// CreatePendingOneTime records a purchase attempt before the payer is redirected
func (s *LedgerService) CreatePendingOneTime(ctx context.Context, identity entity.Identity, categoryID string, amount int64) (uuid.UUID, error) {
	if identity.IsAnonymous() {
		return uuid.Nil, domainErrors.ErrNotAuthenticated
	}

	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil || !category.HasOneTimePrice() {
		return uuid.Nil, domainErrors.ErrInvalidCategory
	}
	if *category.OneTimePrice != amount {
		s.logger.Warn("One-time amount does not match catalog price",
			zap.String("category_id", categoryID),
			zap.Int64("amount", amount),
			zap.Int64("catalog_price", *category.OneTimePrice))
		return uuid.Nil, fmt.Errorf("%w: amount %d does not match catalog price", domainErrors.ErrInvalidProduct, amount)
	}

	attempt := &entity.OneTimeEntitlement{
		ID:         uuid.New(),
		IdentityID: identity.ID,
		CategoryID: category.ID,
		Amount:     amount,
		Currency:   category.Currency,
		Status:     entity.OneTimePending,
	}
	if err := s.oneTime.Create(ctx, attempt); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("Created pending one-time entitlement",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("identity_id", identity.ID.String()),
		zap.String("category_id", category.ID))

	return attempt.ID, nil
}

// AttachCheckoutSession stores the processor session on a pending attempt.
// Attaching the same session twice is a no-op.
func (s *LedgerService) AttachCheckoutSession(ctx context.Context, attemptRef uuid.UUID, sessionRef string) error {
	attached, err := s.oneTime.AttachSession(ctx, attemptRef, sessionRef)
	if err != nil {
		return err
	}
	if attached {
		return nil
	}

	row, err := s.oneTime.GetByID(ctx, attemptRef)
	if err != nil {
		return err
	}
	if row == nil {
		return domainErrors.ErrUnknownSettlement
	}
	if row.CheckoutSessionID == sessionRef {
		return nil
	}
	return fmt.Errorf("attempt %s already bound to session %q", attemptRef, row.CheckoutSessionID)
}

// SettleOneTime applies the processor outcome to a pending attempt. It reports
// whether the ledger changed; a repeated identical settlement is a no-op.
func (s *LedgerService) SettleOneTime(ctx context.Context, attemptRef uuid.UUID, outcome entity.Outcome, settledAt time.Time) (bool, error) {
	settledAt = settledAt.UTC()

	var status entity.OneTimeStatus
	var expiresAt *time.Time
	switch outcome {
	case entity.OutcomePaid:
		status = entity.OneTimePaid
		t := settledAt.Add(s.accessWindow)
		expiresAt = &t
	case entity.OutcomeFailed:
		status = entity.OneTimeFailed
	default:
		return false, fmt.Errorf("unknown settlement outcome %q", outcome)
	}

	applied, err := s.oneTime.Settle(ctx, attemptRef, status, settledAt, expiresAt)
	if err != nil {
		return false, err
	}
	if applied {
		s.logger.Info("Settled one-time entitlement",
			zap.String("attempt_id", attemptRef.String()),
			zap.String("outcome", string(outcome)),
			zap.Time("settled_at", settledAt))
		return true, nil
	}

	row, err := s.oneTime.GetByID(ctx, attemptRef)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, domainErrors.ErrUnknownSettlement
	}

	recorded, settled := row.SettlementOutcome()
	if !settled {
		return false, fmt.Errorf("attempt %s was not settled and is still %s", attemptRef, row.Status)
	}
	if recorded == outcome {
		s.logger.Debug("Duplicate settlement ignored",
			zap.String("attempt_id", attemptRef.String()),
			zap.String("outcome", string(outcome)))
		return false, nil
	}

	return false, &domainErrors.ConflictingSettlementError{
		AttemptRef: attemptRef,
		Recorded:   string(recorded),
		Requested:  string(outcome),
	}
}

// UpsertSubscription writes the subscription state reported at eventAt.
// Later events win; a stale event reports false.
func (s *LedgerService) UpsertSubscription(
	ctx context.Context,
	identityID uuid.UUID,
	tier entity.Tier,
	status entity.SubscriptionStatus,
	periodEnd time.Time,
	refs entity.ExternalRefs,
	eventAt time.Time,
) (bool, error) {
	if identityID == uuid.Nil {
		return false, domainErrors.ErrNotAuthenticated
	}
	if !tier.Valid() {
		return false, fmt.Errorf("%w: unknown tier %q", domainErrors.ErrInvalidProduct, tier)
	}

	applied, err := s.subscription.Upsert(ctx, &entity.SubscriptionEntitlement{
		IdentityID:             identityID,
		Tier:                   tier,
		Status:                 status,
		CurrentPeriodEnd:       periodEnd.UTC(),
		ProviderCustomerID:     refs.CustomerID,
		ProviderSubscriptionID: refs.SubscriptionID,
		LastEventAt:            eventAt.UTC(),
	})
	if err != nil {
		return false, err
	}

	if applied {
		s.logger.Info("Subscription entitlement updated",
			zap.String("identity_id", identityID.String()),
			zap.String("tier", string(tier)),
			zap.String("status", string(status)),
			zap.Time("period_end", periodEnd))
	} else {
		s.logger.Info("Stale subscription event ignored",
			zap.String("identity_id", identityID.String()),
			zap.Time("event_at", eventAt))
	}
	return applied, nil
}

// HasActiveSubscription reports whether identity holds a subscription that grants right now
func (s *LedgerService) HasActiveSubscription(ctx context.Context, identity entity.Identity) (bool, error) {
	if identity.IsAnonymous() {
		return false, nil
	}
	sub, err := s.subscription.GetByIdentity(ctx, identity.ID)
	if err != nil {
		return false, err
	}
	return sub != nil && sub.Active(s.now()), nil
}

// CurrentAccess recomputes what identity holds right now from the ledger
func (s *LedgerService) CurrentAccess(ctx context.Context, identity entity.Identity) (entity.Access, error) {
	access := entity.NoAccess()
	if identity.IsAnonymous() {
		return access, nil
	}
	now := s.now()

	sub, err := s.subscription.GetByIdentity(ctx, identity.ID)
	if err != nil {
		return access, err
	}
	if sub != nil {
		periodEnd := sub.CurrentPeriodEnd
		access.SubscriptionStatus = sub.Status
		access.PeriodEnd = &periodEnd
		if sub.Active(now) {
			access.SubscriptionTier = sub.Tier
		}
	}

	grants, err := s.oneTime.ListGranting(ctx, identity.ID, now)
	if err != nil {
		return access, err
	}
	for _, g := range grants {
		if !g.Grants(now) {
			continue
		}
		if current, ok := access.UnlockedCategories[g.CategoryID]; !ok || g.ExpiresAt.After(current) {
			access.UnlockedCategories[g.CategoryID] = *g.ExpiresAt
		}
	}

	return access, nil
}

// ListOneTime returns the purchase history of identity, newest first
func (s *LedgerService) ListOneTime(ctx context.Context, identity entity.Identity, params entity.PaginationParams) (*entity.PaginatedPurchasesResponse, error) {
	if identity.IsAnonymous() {
		return nil, domainErrors.ErrNotAuthenticated
	}
	params.Normalize()

	purchases, total, err := s.oneTime.ListByIdentity(ctx, identity.ID, params.Limit, params.Offset())
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, p := range purchases {
		p.Effective = p.EffectiveStatus(now)
	}

	return &entity.PaginatedPurchasesResponse{
		Data:       purchases,
		Pagination: entity.NewPaginationMeta(params.Page, params.Limit, total),
	}, nil
}

// FindAttempt resolves an attempt by session reference, then by attempt id
func (s *LedgerService) FindAttempt(ctx context.Context, sessionRef, attemptRef string) (*entity.OneTimeEntitlement, error) {
	if sessionRef != "" {
		row, err := s.oneTime.GetBySessionID(ctx, sessionRef)
		if err != nil || row != nil {
			return row, err
		}
	}

	id, err := uuid.Parse(attemptRef)
	if err != nil {
		return nil, nil
	}
	return s.oneTime.GetByID(ctx, id)
}

// PendingBefore lists pending attempts with a session opened before cutoff
func (s *LedgerService) PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.OneTimeEntitlement, error) {
	return s.oneTime.ListPendingBefore(ctx, cutoff.UTC(), limit)
}
