package entity

import "fmt"

type ProductKind string

const (
	ProductSubscription ProductKind = "subscription"
	ProductOneTime      ProductKind = "one_time"
)

// Product selects what a checkout sells: a subscription tier or a one-time category unlock.
type Product struct {
	Kind       ProductKind `json:"kind" validate:"required,oneof=subscription one_time"`
	Tier       Tier        `json:"tier,omitempty"`
	CategoryID string      `json:"category_id,omitempty"`
}

func (p Product) String() string {
	if p.Kind == ProductSubscription {
		return fmt.Sprintf("subscription:%s", p.Tier)
	}
	return fmt.Sprintf("one_time:%s", p.CategoryID)
}

// CheckoutResult is returned to the client to redirect the payer.
type CheckoutResult struct {
	URL        string `json:"url"`
	SessionID  string `json:"session_id"`
	AttemptRef string `json:"attempt_ref,omitempty"`
}
