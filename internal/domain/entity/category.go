package entity

import (
	"github.com/shopspring/decimal"
)

// Category is a care specialization from the catalog.
type Category struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Group              string `json:"group"`
	Description        string `json:"description,omitempty"`
	RecurringAvailable bool   `json:"recurring_available"`
	// OneTimePrice is in minor units; nil when no one-time unlock is sold.
	OneTimePrice *int64 `json:"one_time_price,omitempty"`
	Currency     string `json:"currency"`
}

func (c *Category) HasOneTimePrice() bool {
	return c.OneTimePrice != nil && *c.OneTimePrice > 0
}

// DisplayPrice formats the one-time price in major units, e.g. "19.90".
func (c *Category) DisplayPrice() string {
	if !c.HasOneTimePrice() {
		return ""
	}
	return decimal.New(*c.OneTimePrice, -2).StringFixed(2)
}
