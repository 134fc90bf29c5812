package entity

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionEntitlement is the single subscription row of an identity.
type SubscriptionEntitlement struct {
	IdentityID             uuid.UUID          `json:"identity_id"`
	Tier                   Tier               `json:"tier"`
	Status                 SubscriptionStatus `json:"status"`
	CurrentPeriodEnd       time.Time          `json:"current_period_end"`
	ProviderCustomerID     string             `json:"provider_customer_id"`
	ProviderSubscriptionID string             `json:"provider_subscription_id"`
	LastEventAt            time.Time          `json:"last_event_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// Active reports whether the subscription counts toward access at now.
func (s *SubscriptionEntitlement) Active(now time.Time) bool {
	return s.Status == SubscriptionActive && !now.After(s.CurrentPeriodEnd)
}

// ExternalRefs are the processor references stored with a subscription.
type ExternalRefs struct {
	CustomerID     string
	SubscriptionID string
}
