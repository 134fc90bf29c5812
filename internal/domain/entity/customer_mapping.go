package entity

import (
	"time"

	"github.com/google/uuid"
)

// CustomerMapping links an identity to its payment processor customer.
type CustomerMapping struct {
	ID                 int64     `json:"id"`
	Provider           string    `json:"provider"`
	ProviderCustomerID string    `json:"provider_customer_id"`
	IdentityID         uuid.UUID `json:"identity_id"`
	Email              string    `json:"email"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
