package model

import "time"

// Category is a care specialization sold by the catalog
type Category struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Name               string    `gorm:"size:255;not null" json:"name" yaml:"name"`
	GroupTag           string    `gorm:"column:group_tag;size:64;index" json:"group" yaml:"group"`
	Description        string    `gorm:"type:text" json:"description" yaml:"description"`
	RecurringAvailable bool      `gorm:"not null" json:"recurring_available" yaml:"recurring_available"`
	OneTimePriceMinor  *int64    `gorm:"column:one_time_price_minor" json:"one_time_price_minor,omitempty" yaml:"one_time_price_minor"`
	Currency           string    `gorm:"size:3;not null" json:"currency" yaml:"currency"`
	Active             bool      `gorm:"not null;index" json:"active" yaml:"active"`
	SortOrder          int       `gorm:"not null" json:"sort_order" yaml:"sort_order"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

// TableName specifies the table name for GORM
func (Category) TableName() string {
	return "categories"
}
