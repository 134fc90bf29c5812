package entity

import "time"

// Checkout session modes and payment statuses as reported by the processor.
const (
	SessionModePayment      = "payment"
	SessionModeSubscription = "subscription"

	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// Metadata keys written on checkout sessions and subscriptions.
const (
	MetadataIdentityID = "identity_id"
	MetadataAttemptID  = "attempt_id"
	MetadataCategoryID = "category_id"
	MetadataTier       = "tier"
	MetadataKind       = "payment_type"
)

// ProcessorEventType is the subset of processor notifications the reconciler acts on.
type ProcessorEventType string

const (
	EventCheckoutCompleted      ProcessorEventType = "checkout.session.completed"
	EventCheckoutAsyncSucceeded ProcessorEventType = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    ProcessorEventType = "checkout.session.async_payment_failed"
	EventCheckoutExpired        ProcessorEventType = "checkout.session.expired"
	EventSubscriptionCreated    ProcessorEventType = "customer.subscription.created"
	EventSubscriptionUpdated    ProcessorEventType = "customer.subscription.updated"
	EventSubscriptionDeleted    ProcessorEventType = "customer.subscription.deleted"
)

// CheckoutSession is the processor's view of a checkout session.
type CheckoutSession struct {
	ID                string
	URL               string
	Mode              string
	Status            string
	PaymentStatus     string
	ClientReferenceID string
	CustomerID        string
	SubscriptionID    string
	Metadata          map[string]string
	Created           time.Time
	// SettledAt is the processor's time of the final outcome: the charge time
	// for paid sessions, the expiry time for expired ones. Zero when unknown.
	SettledAt time.Time
}

// ProcessorSubscription is the processor's view of a subscription.
type ProcessorSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	Metadata         map[string]string
	CurrentPeriodEnd time.Time
}

// ProcessorEvent is a verified notification from the payment processor.
type ProcessorEvent struct {
	ID      string
	Type    ProcessorEventType
	Created time.Time
	// Exactly one of Session and Subscription is set for handled types.
	Session      *CheckoutSession
	Subscription *ProcessorSubscription
	Payload      []byte
}
