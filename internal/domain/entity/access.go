package entity

import (
	"fmt"
	"time"
)

// Tier is a subscription tier. Tiers are ordered free < standard < premium.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Rank returns the tier's position in the ordering, or -1 for unknown tiers.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierStandard:
		return 1
	case TierPremium:
		return 2
	default:
		return -1
	}
}

func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// ParseTier accepts a tier name as stored in processor metadata.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Access is what an identity holds at a point in time.
type Access struct {
	SubscriptionTier   Tier                 `json:"subscription_tier"`
	SubscriptionStatus SubscriptionStatus   `json:"subscription_status,omitempty"`
	PeriodEnd          *time.Time           `json:"period_end,omitempty"`
	UnlockedCategories map[string]time.Time `json:"unlocked_categories"`
}

// NoAccess is the access of anonymous and unentitled identities.
func NoAccess() Access {
	return Access{SubscriptionTier: TierFree, UnlockedCategories: map[string]time.Time{}}
}

// HasCategory reports whether category is unlocked at now.
func (a Access) HasCategory(category string, now time.Time) bool {
	expiresAt, ok := a.UnlockedCategories[category]
	return ok && !now.After(expiresAt)
}

// UnlockedIDs returns the unlocked category ids in no particular order.
func (a Access) UnlockedIDs() []string {
	ids := make([]string, 0, len(a.UnlockedCategories))
	for id := range a.UnlockedCategories {
		ids = append(ids, id)
	}
	return ids
}

// VisibilityLevel is how much of a resource's identity a viewer may see.
type VisibilityLevel int

const (
	Hidden VisibilityLevel = iota
	PartiallyRevealed
	FullyRevealed
)

func (l VisibilityLevel) String() string {
	switch l {
	case PartiallyRevealed:
		return "partially_revealed"
	case FullyRevealed:
		return "fully_revealed"
	default:
		return "hidden"
	}
}

func (l VisibilityLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *VisibilityLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "hidden":
		*l = Hidden
	case "partially_revealed":
		*l = PartiallyRevealed
	case "fully_revealed":
		*l = FullyRevealed
	default:
		return fmt.Errorf("unknown visibility level %q", text)
	}
	return nil
}

// MaxLevel returns the more revealing of a and b.
func MaxLevel(a, b VisibilityLevel) VisibilityLevel {
	if a > b {
		return a
	}
	return b
}

// VisibilityDecision is the resolved redaction for one resource.
type VisibilityDecision struct {
	Level          VisibilityLevel `json:"level"`
	DisplayName    string          `json:"display_name"`
	ContactEnabled bool            `json:"contact_enabled"`
	// Source is subscription, one_time or none.
	Source string `json:"source"`
}
