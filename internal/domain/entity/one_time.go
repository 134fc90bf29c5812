package entity

import (
	"time"

	"github.com/google/uuid"
)

type OneTimeStatus string

const (
	OneTimePending OneTimeStatus = "pending"
	OneTimePaid    OneTimeStatus = "paid"
	OneTimeFailed  OneTimeStatus = "failed"
	// OneTimeExpired is derived at read time and never stored.
	OneTimeExpired OneTimeStatus = "expired"
)

// Outcome is a settlement result reported by the payment processor.
type Outcome string

const (
	OutcomePaid   Outcome = "paid"
	OutcomeFailed Outcome = "failed"
)

// OneTimeEntitlement is one purchase attempt for a category unlock.
type OneTimeEntitlement struct {
	ID                uuid.UUID     `json:"id"`
	IdentityID        uuid.UUID     `json:"identity_id"`
	CategoryID        string        `json:"category_id"`
	Amount            int64         `json:"amount"`
	Currency          string        `json:"currency"`
	Status            OneTimeStatus `json:"status"`
	CheckoutSessionID string        `json:"checkout_session_id,omitempty"`
	SettledAt         *time.Time    `json:"settled_at,omitempty"`
	ExpiresAt         *time.Time    `json:"expires_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Grants reports whether the row unlocks its category at now.
func (e *OneTimeEntitlement) Grants(now time.Time) bool {
	return e.Status == OneTimePaid && e.ExpiresAt != nil && !now.After(*e.ExpiresAt)
}

// EffectiveStatus folds expiry into the stored status.
func (e *OneTimeEntitlement) EffectiveStatus(now time.Time) OneTimeStatus {
	if e.Status == OneTimePaid && !e.Grants(now) {
		return OneTimeExpired
	}
	return e.Status
}

// SettlementOutcome maps a stored status back to the outcome that produced it.
func (e *OneTimeEntitlement) SettlementOutcome() (Outcome, bool) {
	switch e.Status {
	case OneTimePaid:
		return OutcomePaid, true
	case OneTimeFailed:
		return OutcomeFailed, true
	default:
		return "", false
	}
}

// Purchase is a one-time entitlement as shown on the account page.
type Purchase struct {
	OneTimeEntitlement
	CategoryName string        `json:"category_name"`
	Effective    OneTimeStatus `json:"effective_status"`
}
