package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionEntitlement is the single subscription row per identity
type SubscriptionEntitlement struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	IdentityID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"identity_id"`
	Tier                   string    `gorm:"size:20;not null" json:"tier"`
	Status                 string    `gorm:"size:20;not null;index" json:"status"`
	CurrentPeriodEnd       time.Time `gorm:"not null" json:"current_period_end"`
	ProviderCustomerID     string    `gorm:"size:100" json:"provider_customer_id"`
	ProviderSubscriptionID string    `gorm:"size:100;index" json:"provider_subscription_id"`
	// LastEventAt is the processor time of the event that produced this row.
	LastEventAt time.Time `gorm:"not null" json:"last_event_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SubscriptionEntitlement) TableName() string {
	return "subscription_entitlements"
}
