package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotAuthenticated indicates an anonymous identity attempted an owner-only operation
	ErrNotAuthenticated = errors.New("authentication required")

	// ErrInvalidProduct indicates an unknown tier or category, or a price mismatch
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidCategory indicates the category is unknown, inactive or has no one-time price
	ErrInvalidCategory = fmt.Errorf("%w: category not purchasable", ErrInvalidProduct)

	// ErrCheckoutUnavailable indicates the payment processor failed or timed out; the caller may retry
	ErrCheckoutUnavailable = errors.New("checkout temporarily unavailable")

	// ErrProcessorRejected indicates the payment processor refused the request; retrying will not help
	ErrProcessorRejected = errors.New("payment processor rejected the request")

	// ErrSubscriptionExists indicates a subscription checkout for an identity that already subscribes
	ErrSubscriptionExists = errors.New("an active subscription already exists")

	// ErrConflictingSettlement indicates an attempt was already settled with another outcome
	ErrConflictingSettlement = errors.New("conflicting settlement")

	// ErrUnknownSettlement indicates a notification referenced no known attempt
	ErrUnknownSettlement = errors.New("unknown settlement")

	// ErrNoCustomerMapping indicates that the identity has no associated processor customer
	ErrNoCustomerMapping = errors.New("no customer mapping found for identity")

	// ErrInvalidSignature indicates a webhook payload failed signature verification
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrResourceNotFound indicates the requested profile does not exist
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInvalidQuery indicates a search or profile request with an unknown resource type
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSessionNotOwned indicates a checkout session belongs to another identity
	ErrSessionNotOwned = errors.New("checkout session belongs to another identity")
)

// ConflictingSettlementError carries both outcomes for manual review.
type ConflictingSettlementError struct {
	AttemptRef uuid.UUID
	Recorded   string
	Requested  string
}

func (e *ConflictingSettlementError) Error() string {
	return fmt.Sprintf("attempt %s already settled as %s, refusing %s", e.AttemptRef, e.Recorded, e.Requested)
}

func (e *ConflictingSettlementError) Is(target error) bool {
	return target == ErrConflictingSettlement
}
