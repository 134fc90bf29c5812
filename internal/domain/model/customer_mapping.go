package model

import (
	"time"

	"github.com/google/uuid"
)

// CustomerMapping maps payment processor customer IDs to identities
type CustomerMapping struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           string    `gorm:"size:20;not null" json:"provider"`
	ProviderCustomerID string    `gorm:"column:provider_customer_id;uniqueIndex;not null;size:100" json:"provider_customer_id"`
	IdentityID         uuid.UUID `gorm:"column:identity_id;type:uuid;not null;uniqueIndex" json:"identity_id"`
	CustomerEmail      string    `gorm:"size:255;index" json:"customer_email"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CustomerMapping) TableName() string {
	return "customer_mappings"
}
