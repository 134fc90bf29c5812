package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator is an independent care provider profile, owned by profile management
type Operator struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName string    `gorm:"size:100;not null" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Headline  string    `gorm:"size:255" json:"headline"`
	City      string    `gorm:"size:100;index" json:"city"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Active    bool      `gorm:"not null;index" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Operator) TableName() string {
	return "operators"
}

// DisplayName joins first and last name.
func (o *Operator) DisplayName() string {
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// Organization is a care organization profile, owned by profile management
type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Headline  string    `gorm:"size:255" json:"headline"`
	City      string    `gorm:"size:100;index" json:"city"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Website   string    `gorm:"size:255" json:"website"`
	Active    bool      `gorm:"not null;index" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

// OperatorSpecialization links an operator to a category
type OperatorSpecialization struct {
	OperatorID uuid.UUID `gorm:"type:uuid;primaryKey" json:"operator_id"`
	CategoryID string    `gorm:"size:64;primaryKey;index" json:"category_id"`
}

// TableName specifies the table name for GORM
func (OperatorSpecialization) TableName() string {
	return "operator_specializations"
}

// OrganizationSpecialization links an organization to a category
type OrganizationSpecialization struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"organization_id"`
	CategoryID     string    `gorm:"size:64;primaryKey;index" json:"category_id"`
}

// TableName specifies the table name for GORM
func (OrganizationSpecialization) TableName() string {
	return "organization_specializations"
}
