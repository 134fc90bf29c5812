package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/familu/entitlement-service/internal/adapter/repository"
	"github.com/familu/entitlement-service/internal/domain/entity"
	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/familu/entitlement-service/internal/domain/provider"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/familu/entitlement-service/pkg/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultChangeChannel is the pub/sub channel for applied settlements.
const DefaultChangeChannel = "entitlement.changed"

// checkout session statuses reported when polling
const (
	sessionStatusComplete = "complete"
	sessionStatusExpired  = "expired"
)

// EntitlementChanged is published after a settlement changes the ledger
type EntitlementChanged struct {
	IdentityID string    `json:"identity_id"`
	Kind       string    `json:"kind"`
	CategoryID string    `json:"category_id,omitempty"`
	Tier       string    `json:"tier,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReconcileResult is the outcome of polling a checkout session
type ReconcileResult struct {
	SessionID     string `json:"session_id"`
	Mode          string `json:"mode"`
	PaymentStatus string `json:"payment_status"`
	// Outcome is paid, failed or empty while the processor has not decided.
	Outcome entity.Outcome `json:"outcome,omitempty"`
	Applied bool           `json:"applied"`
}

// SettlementService applies processor settlements to the ledger
type SettlementService struct {
	ledger     *LedgerService
	mappings   domainRepo.CustomerMappingRepository
	webhooks   repository.WebhookRepository
	provider   provider.PaymentProvider
	publisher  messaging.Publisher
	channel    string
	priceTiers map[string]entity.Tier
	now        func() time.Time
	logger     *zap.Logger
}

// NewSettlementService creates a new settlement service. publisher may be nil.
func NewSettlementService(
	ledger *LedgerService,
	mappings domainRepo.CustomerMappingRepository,
	webhooks repository.WebhookRepository,
	paymentProvider provider.PaymentProvider,
	publisher messaging.Publisher,
	channel string,
	tierPrices map[entity.Tier]string,
	logger *zap.Logger,
) *SettlementService {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	priceTiers := make(map[string]entity.Tier, len(tierPrices))
	for tier, priceID := range tierPrices {
		priceTiers[priceID] = tier
	}
	return &SettlementService{
		ledger:     ledger,
		mappings:   mappings,
		webhooks:   webhooks,
		provider:   paymentProvider,
		publisher:  publisher,
		channel:    channel,
		priceTiers: priceTiers,
		now:        utcNow,
		logger:     logger,
	}
}

// WithClock replaces the clock used when a polled session carries no settlement time
func (s *SettlementService) WithClock(now func() time.Time) *SettlementService {
	s.now = now
	return s
}

// HandleWebhook verifies, journals and applies a processor notification.
// Unknown settlements are acknowledged; conflicts and failures are returned.
func (s *SettlementService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	s.logger.Info("Received webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	inserted, err := s.webhooks.SaveEvent(ctx, event)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.webhooks.GetEvent(ctx, event.ID)
		if err != nil {
			return err
		}
		if existing != nil && (existing.Status == model.WebhookStatusCompleted || existing.Status == model.WebhookStatusIgnored) {
			s.logger.Info("Webhook event already processed",
				zap.String("event_id", event.ID))
			return nil
		}
	}

	return s.dispatch(ctx, event)
}

// dispatch applies a journaled event and records the result in the journal
func (s *SettlementService) dispatch(ctx context.Context, event *entity.ProcessorEvent) error {
	_, err := s.ProcessEvent(ctx, event)

	switch {
	case err == nil:
		if markErr := s.webhooks.MarkProcessed(ctx, event.ID, model.WebhookStatusCompleted); markErr != nil {
			s.logger.Error("Failed to mark event processed", zap.String("event_id", event.ID), zap.Error(markErr))
		}
		return nil

	case errors.Is(err, domainErrors.ErrUnknownSettlement):
		s.logger.Warn("Dropping settlement for unknown attempt",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		if markErr := s.webhooks.MarkProcessed(ctx, event.ID, model.WebhookStatusIgnored); markErr != nil {
			s.logger.Error("Failed to mark event ignored", zap.String("event_id", event.ID), zap.Error(markErr))
		}
		return nil

	case errors.Is(err, domainErrors.ErrConflictingSettlement):
		s.logger.Error("Conflicting settlement requires manual review",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		if markErr := s.webhooks.MarkProcessed(ctx, event.ID, model.WebhookStatusFailed); markErr != nil {
			s.logger.Error("Failed to mark event failed", zap.String("event_id", event.ID), zap.Error(markErr))
		}
		return err

	default:
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		if markErr := s.webhooks.MarkFailed(ctx, event.ID, err); markErr != nil {
			s.logger.Error("Failed to mark event failed", zap.String("event_id", event.ID), zap.Error(markErr))
		}
		return err
	}
}

// ProcessEvent translates a verified event into ledger writes. It reports
// whether the ledger changed.
func (s *SettlementService) ProcessEvent(ctx context.Context, event *entity.ProcessorEvent) (bool, error) {
	switch event.Type {
	case entity.EventCheckoutCompleted,
		entity.EventCheckoutAsyncSucceeded,
		entity.EventCheckoutAsyncFailed,
		entity.EventCheckoutExpired:
		if event.Session == nil {
			return false, fmt.Errorf("event %s carries no checkout session", event.ID)
		}
		return s.handleSessionEvent(ctx, event)

	case entity.EventSubscriptionCreated,
		entity.EventSubscriptionUpdated,
		entity.EventSubscriptionDeleted:
		if event.Subscription == nil {
			return false, fmt.Errorf("event %s carries no subscription", event.ID)
		}
		return s.applySubscription(ctx, event)

	default:
		s.logger.Debug("Unhandled event type", zap.String("event_type", string(event.Type)))
		return false, nil
	}
}

func (s *SettlementService) handleSessionEvent(ctx context.Context, event *entity.ProcessorEvent) (bool, error) {
	session := event.Session

	if session.Mode == entity.SessionModeSubscription {
		// subscription state arrives with customer.subscription.* events
		if event.Type == entity.EventCheckoutCompleted {
			s.linkCustomer(ctx, session)
		}
		return false, nil
	}

	var outcome entity.Outcome
	switch event.Type {
	case entity.EventCheckoutCompleted:
		switch session.PaymentStatus {
		case entity.PaymentStatusPaid, entity.PaymentStatusNoPaymentRequired:
			outcome = entity.OutcomePaid
		default:
			s.logger.Info("Checkout completed with payment pending",
				zap.String("session_id", session.ID),
				zap.String("payment_status", session.PaymentStatus))
			return false, nil
		}
	case entity.EventCheckoutAsyncSucceeded:
		outcome = entity.OutcomePaid
	default:
		outcome = entity.OutcomeFailed
	}

	return s.applyOneTime(ctx, session, outcome, event.Created)
}

// applyOneTime settles the attempt a session belongs to
func (s *SettlementService) applyOneTime(ctx context.Context, session *entity.CheckoutSession, outcome entity.Outcome, settledAt time.Time) (bool, error) {
	attemptRef := session.ClientReferenceID
	if attemptRef == "" {
		attemptRef = session.Metadata[entity.MetadataAttemptID]
	}

	row, err := s.ledger.FindAttempt(ctx, session.ID, attemptRef)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, fmt.Errorf("%w: session %s", domainErrors.ErrUnknownSettlement, session.ID)
	}
	if session.Metadata[entity.MetadataIdentityID] != row.IdentityID.String() {
		return false, fmt.Errorf("%w: session %s identity does not match attempt %s",
			domainErrors.ErrUnknownSettlement, session.ID, row.ID)
	}
	if row.CheckoutSessionID != "" && row.CheckoutSessionID != session.ID {
		return false, fmt.Errorf("%w: attempt %s is bound to another session",
			domainErrors.ErrUnknownSettlement, row.ID)
	}
	if row.CheckoutSessionID == "" {
		if err := s.ledger.AttachCheckoutSession(ctx, row.ID, session.ID); err != nil {
			return false, err
		}
	}

	applied, err := s.ledger.SettleOneTime(ctx, row.ID, outcome, settledAt)
	if err != nil {
		return false, err
	}
	if applied {
		s.publish(ctx, EntitlementChanged{
			IdentityID: row.IdentityID.String(),
			Kind:       string(entity.ProductOneTime),
			CategoryID: row.CategoryID,
			Status:     string(outcome),
			OccurredAt: settledAt.UTC(),
		})
	}
	return applied, nil
}

func (s *SettlementService) applySubscription(ctx context.Context, event *entity.ProcessorEvent) (bool, error) {
	sub := event.Subscription

	identityID, err := s.subscriptionIdentity(ctx, sub)
	if err != nil {
		return false, err
	}

	tier, err := entity.ParseTier(sub.Metadata[entity.MetadataTier])
	if err != nil {
		var ok bool
		if tier, ok = s.priceTiers[sub.PriceID]; !ok {
			return false, fmt.Errorf("%w: subscription %s has no known tier", domainErrors.ErrUnknownSettlement, sub.ID)
		}
	}

	status := mapSubscriptionStatus(sub.Status)
	if event.Type == entity.EventSubscriptionDeleted {
		status = entity.SubscriptionCanceled
	}

	periodEnd := sub.CurrentPeriodEnd
	if periodEnd.IsZero() {
		periodEnd = event.Created
	}

	applied, err := s.ledger.UpsertSubscription(ctx, identityID, tier, status, periodEnd, entity.ExternalRefs{
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.ID,
	}, event.Created)
	if err != nil {
		return false, err
	}
	if applied {
		s.publish(ctx, EntitlementChanged{
			IdentityID: identityID.String(),
			Kind:       string(entity.ProductSubscription),
			Tier:       string(tier),
			Status:     string(status),
			OccurredAt: event.Created.UTC(),
		})
	}
	return applied, nil
}

// subscriptionIdentity reads the identity from metadata, falling back to the customer mapping
func (s *SettlementService) subscriptionIdentity(ctx context.Context, sub *entity.ProcessorSubscription) (uuid.UUID, error) {
	if raw := sub.Metadata[entity.MetadataIdentityID]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, nil
		}
	}

	if sub.CustomerID != "" {
		mapping, err := s.mappings.GetByProviderCustomerID(ctx, sub.CustomerID)
		if err != nil {
			return uuid.Nil, err
		}
		if mapping != nil {
			return mapping.IdentityID, nil
		}
	}

	return uuid.Nil, fmt.Errorf("%w: subscription %s has no known identity", domainErrors.ErrUnknownSettlement, sub.ID)
}

// mapSubscriptionStatus folds processor statuses into the ledger's three
func mapSubscriptionStatus(status string) entity.SubscriptionStatus {
	switch status {
	case "active", "trialing":
		return entity.SubscriptionActive
	case "past_due", "unpaid", "incomplete":
		return entity.SubscriptionPastDue
	default:
		return entity.SubscriptionCanceled
	}
}

// linkCustomer records the customer of a completed subscription checkout
func (s *SettlementService) linkCustomer(ctx context.Context, session *entity.CheckoutSession) {
	identityID, err := uuid.Parse(session.Metadata[entity.MetadataIdentityID])
	if err != nil || session.CustomerID == "" {
		return
	}

	existing, err := s.mappings.GetByIdentityID(ctx, identityID)
	if err != nil {
		s.logger.Warn("Failed to read customer mapping", zap.String("identity_id", identityID.String()), zap.Error(err))
		return
	}
	if existing != nil && existing.ProviderCustomerID == session.CustomerID {
		return
	}

	mapping := &entity.CustomerMapping{
		Provider:           s.provider.GetProviderName(),
		ProviderCustomerID: session.CustomerID,
		IdentityID:         identityID,
	}
	if existing != nil {
		mapping.Email = existing.Email
	}
	if err := s.mappings.Upsert(ctx, mapping); err != nil {
		s.logger.Warn("Failed to store customer mapping", zap.String("identity_id", identityID.String()), zap.Error(err))
	}
}

// ReconcileSession polls the processor for a session owned by identity and
// applies its outcome. It is the fallback when a notification is late.
func (s *SettlementService) ReconcileSession(ctx context.Context, identity entity.Identity, sessionRef string) (*ReconcileResult, error) {
	if identity.IsAnonymous() {
		return nil, domainErrors.ErrNotAuthenticated
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionRef)
	if err != nil {
		return nil, processorFailure(err)
	}
	if session.Metadata[entity.MetadataIdentityID] != identity.ID.String() {
		return nil, domainErrors.ErrSessionNotOwned
	}

	return s.reconcile(ctx, session)
}

// ReconcileAttempt polls the processor for a pending attempt's session
func (s *SettlementService) ReconcileAttempt(ctx context.Context, attempt *entity.OneTimeEntitlement) (*ReconcileResult, error) {
	if attempt.CheckoutSessionID == "" {
		return nil, fmt.Errorf("attempt %s has no checkout session", attempt.ID)
	}

	session, err := s.provider.GetCheckoutSession(ctx, attempt.CheckoutSessionID)
	if err != nil {
		return nil, processorFailure(err)
	}
	return s.reconcile(ctx, session)
}

func (s *SettlementService) reconcile(ctx context.Context, session *entity.CheckoutSession) (*ReconcileResult, error) {
	result := &ReconcileResult{
		SessionID:     session.ID,
		Mode:          session.Mode,
		PaymentStatus: session.PaymentStatus,
	}
	if session.Mode == entity.SessionModeSubscription {
		if session.Status == sessionStatusComplete {
			s.linkCustomer(ctx, session)
		}
		return result, nil
	}

	switch {
	case session.Status == sessionStatusComplete &&
		(session.PaymentStatus == entity.PaymentStatusPaid || session.PaymentStatus == entity.PaymentStatusNoPaymentRequired):
		result.Outcome = entity.OutcomePaid
	case session.Status == sessionStatusExpired:
		result.Outcome = entity.OutcomeFailed
	default:
		return result, nil
	}

	settledAt := session.SettledAt
	if settledAt.IsZero() || settledAt.After(s.now()) {
		settledAt = s.now()
	}
	applied, err := s.applyOneTime(ctx, session, result.Outcome, settledAt)
	if err != nil {
		return nil, err
	}
	result.Applied = applied
	return result, nil
}

// RetryJournal re-applies journaled events left pending before cutoff and
// failed events whose retry time has come. It returns how many succeeded.
func (s *SettlementService) RetryJournal(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	events, err := s.webhooks.GetPendingEvents(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	succeeded := 0
	for _, row := range events {
		payload, err := json.Marshal(row.Data)
		if err != nil {
			s.logger.Error("Failed to encode journaled event", zap.String("event_id", row.StripeEventID), zap.Error(err))
			continue
		}
		event, err := s.provider.DecodeEvent(payload)
		if err != nil {
			s.logger.Error("Failed to decode journaled event", zap.String("event_id", row.StripeEventID), zap.Error(err))
			if markErr := s.webhooks.MarkFailed(ctx, row.StripeEventID, err); markErr != nil {
				s.logger.Error("Failed to mark event failed", zap.String("event_id", row.StripeEventID), zap.Error(markErr))
			}
			continue
		}
		if err := s.dispatch(ctx, event); err == nil {
			succeeded++
		}
	}
	return succeeded, nil
}

// publish announces a ledger change. Delivery is best effort.
func (s *SettlementService) publish(ctx context.Context, change EntitlementChanged) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.channel, change); err != nil {
		s.logger.Warn("Failed to publish entitlement change",
			zap.String("identity_id", change.IdentityID),
			zap.String("channel", s.channel),
			zap.Error(err))
	}
}
