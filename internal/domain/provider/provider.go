package provider

import (
	"context"

	"github.com/familu/entitlement-service/internal/domain/entity"
)

// PaymentProvider is the payment processor boundary used by checkout and settlement
type PaymentProvider interface {
	// FindOrCreateCustomer returns the processor customer for email, creating it if none exists
	FindOrCreateCustomer(ctx context.Context, req *CustomerRequest) (string, error)

	// CreateCheckoutSession opens a hosted checkout for a single line item
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*entity.CheckoutSession, error)

	// GetCheckoutSession fetches a session for the polling fallback
	GetCheckoutSession(ctx context.Context, sessionID string) (*entity.CheckoutSession, error)

	// CreatePortalSession opens the customer billing portal
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	// ParseWebhook verifies the signature and decodes the event
	ParseWebhook(payload []byte, signature string) (*entity.ProcessorEvent, error)

	// DecodeEvent decodes an already verified event from the journal
	DecodeEvent(payload []byte) (*entity.ProcessorEvent, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// CustomerRequest identifies the payer
type CustomerRequest struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
}

// CheckoutSessionRequest is a provider-agnostic checkout request
type CheckoutSessionRequest struct {
	CustomerID string `json:"customer_id"`
	Mode       string `json:"mode"` // 'payment' or 'subscription'
	// PriceID is used for subscriptions; one-time items carry inline price data.
	PriceID     string            `json:"price_id,omitempty"`
	ProductName string            `json:"product_name,omitempty"`
	Amount      int64             `json:"amount,omitempty"` // Amount in smallest currency unit
	Currency    string            `json:"currency,omitempty"`
	ClientRef   string            `json:"client_reference_id,omitempty"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ProviderType represents the type of payment provider
type ProviderType string

const (
	ProviderTypeStripe ProviderType = "stripe"
)

// ProviderError is returned for processor failures the caller may retry
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// Temporary marks network failures, timeouts, rate limits and 5xx responses.
	Temporary bool `json:"temporary"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
