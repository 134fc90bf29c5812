package model

import (
	"time"

	"github.com/google/uuid"
)

// OneTimeEntitlement is one purchase attempt for a category unlock
type OneTimeEntitlement struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_one_time_identity_category" json:"identity_id"`
	CategoryID        string     `gorm:"size:64;not null;index:idx_one_time_identity_category" json:"category_id"`
	Amount            int64      `gorm:"not null" json:"amount"`
	Currency          string     `gorm:"size:3;not null" json:"currency"`
	Status            string     `gorm:"size:20;not null;index" json:"status"`
	CheckoutSessionID *string    `gorm:"size:255;uniqueIndex" json:"checkout_session_id,omitempty"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
	ExpiresAt         *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName specifies the table name for GORM
func (OneTimeEntitlement) TableName() string {
	return "one_time_entitlements"
}
