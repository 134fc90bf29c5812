package usecase

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/familu/entitlement-service/internal/domain/entity"
)

const (
	OperatorLabel     = "Verified Operator"
	OrganizationLabel = "Verified Organization"

	SourceSubscription = "subscription"
	SourceOneTime      = "one_time"
	SourceNone         = "none"
)

// EntitlementResolver turns an identity's access into a redaction decision.
// It holds no state besides policy and never performs I/O.
type EntitlementResolver struct {
	oneTimeLevel entity.VisibilityLevel
}

// NewEntitlementResolver creates a resolver granting oneTimeLevel for category unlocks
func NewEntitlementResolver(oneTimeLevel entity.VisibilityLevel) *EntitlementResolver {
	return &EntitlementResolver{oneTimeLevel: oneTimeLevel}
}

// subscriptionLevel is the level granted by the subscription path alone
func subscriptionLevel(access entity.Access, now time.Time) entity.VisibilityLevel {
	if access.SubscriptionStatus != "" && access.SubscriptionStatus != entity.SubscriptionActive {
		return entity.Hidden
	}
	if access.PeriodEnd != nil && now.After(*access.PeriodEnd) {
		return entity.Hidden
	}
	switch access.SubscriptionTier {
	case entity.TierPremium:
		return entity.FullyRevealed
	case entity.TierStandard:
		return entity.PartiallyRevealed
	default:
		return entity.Hidden
	}
}

// Resolve decides how much of resource the holder of access may see at now
func (r *EntitlementResolver) Resolve(access entity.Access, resource *entity.Resource, now time.Time) entity.VisibilityDecision {
	level := subscriptionLevel(access, now)
	source := SourceNone
	if level > entity.Hidden {
		source = SourceSubscription
	}

	for _, categoryID := range resource.CategoryIDs {
		if access.HasCategory(categoryID, now) {
			if r.oneTimeLevel > level {
				level = r.oneTimeLevel
				source = SourceOneTime
			}
			break
		}
	}

	return entity.VisibilityDecision{
		Level:          level,
		DisplayName:    RedactName(resource.Type, resource.Name, level),
		ContactEnabled: level == entity.FullyRevealed,
		Source:         source,
	}
}

// ViewerLevel is the level a viewer holds for a searched facet. With no
// categories selected only the subscription path applies; otherwise the
// one-time path applies when every selected category is unlocked.
func (r *EntitlementResolver) ViewerLevel(access entity.Access, categoryIDs []string, now time.Time) entity.VisibilityLevel {
	level := subscriptionLevel(access, now)
	if len(categoryIDs) == 0 {
		return level
	}
	for _, categoryID := range categoryIDs {
		if !access.HasCategory(categoryID, now) {
			return level
		}
	}
	return entity.MaxLevel(level, r.oneTimeLevel)
}

// Reveal applies a decision to a resource
func (r *EntitlementResolver) Reveal(access entity.Access, resource *entity.Resource, now time.Time) entity.RevealedResource {
	decision := r.Resolve(access, resource, now)
	revealed := entity.RevealedResource{
		ID:          resource.ID,
		Type:        resource.Type,
		Headline:    resource.Headline,
		Location:    resource.Location,
		CategoryIDs: resource.CategoryIDs,
		Visibility:  decision,
	}
	if decision.ContactEnabled {
		contact := resource.Contact
		revealed.Contact = &contact
	}
	return revealed
}

// RedactName returns the display name of a resource at level
func RedactName(resourceType entity.ResourceType, name string, level entity.VisibilityLevel) string {
	switch level {
	case entity.FullyRevealed:
		return name
	case entity.PartiallyRevealed:
		return truncateName(name)
	default:
		if resourceType == entity.ResourceOrganization {
			return OrganizationLabel
		}
		return OperatorLabel
	}
}

// truncateName keeps the first word and the initial of the second:
// "Maria Rossi" becomes "Maria R." and "Maria" becomes "M***".
func truncateName(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		r, _ := utf8.DecodeRuneInString(parts[0])
		return string(r) + "***"
	default:
		r, _ := utf8.DecodeRuneInString(parts[1])
		return parts[0] + " " + string(r) + "."
	}
}
