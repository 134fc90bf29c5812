package usecase_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/usecase"
)

func operator(name string, categories ...string) *entity.Resource {
	return &entity.Resource{
		ID:          uuid.New(),
		Type:        entity.ResourceOperator,
		Name:        name,
		CategoryIDs: categories,
		Contact:     entity.Contact{Email: "op@example.com", Phone: "+39 333 000 0000"},
	}
}

func TestEntitlementResolver_NoEntitlementIsHidden(t *testing.T) {
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, category := range []string{"physio", "elder", "nursing", ""} {
		decision := resolver.Resolve(entity.NoAccess(), operator("Maria Rossi", category), now)
		assert.Equal(t, entity.Hidden, decision.Level, category)
		assert.Equal(t, usecase.OperatorLabel, decision.DisplayName)
		assert.False(t, decision.ContactEnabled)
		assert.Equal(t, usecase.SourceNone, decision.Source)
	}

	org := &entity.Resource{Type: entity.ResourceOrganization, Name: "Casa Serena", CategoryIDs: []string{"elder"}}
	assert.Equal(t, usecase.OrganizationLabel, resolver.Resolve(entity.NoAccess(), org, now).DisplayName)
}

func TestEntitlementResolver_SubscriptionTiers(t *testing.T) {
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	periodEnd := now.Add(24 * time.Hour)

	tests := []struct {
		name    string
		tier    entity.Tier
		status  entity.SubscriptionStatus
		end     time.Time
		level   entity.VisibilityLevel
		display string
	}{
		{"standard active", entity.TierStandard, entity.SubscriptionActive, periodEnd, entity.PartiallyRevealed, "Maria R."},
		{"premium active", entity.TierPremium, entity.SubscriptionActive, periodEnd, entity.FullyRevealed, "Maria Rossi"},
		{"free active", entity.TierFree, entity.SubscriptionActive, periodEnd, entity.Hidden, usecase.OperatorLabel},
		{"premium past due", entity.TierPremium, entity.SubscriptionPastDue, periodEnd, entity.Hidden, usecase.OperatorLabel},
		{"premium canceled", entity.TierPremium, entity.SubscriptionCanceled, periodEnd, entity.Hidden, usecase.OperatorLabel},
		{"premium period over", entity.TierPremium, entity.SubscriptionActive, now.Add(-time.Second), entity.Hidden, usecase.OperatorLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := entity.NoAccess()
			access.SubscriptionTier = tt.tier
			access.SubscriptionStatus = tt.status
			access.PeriodEnd = &tt.end

			decision := resolver.Resolve(access, operator("Maria Rossi", "physio"), now)
			assert.Equal(t, tt.level, decision.Level)
			assert.Equal(t, tt.display, decision.DisplayName)
			assert.Equal(t, tt.level == entity.FullyRevealed, decision.ContactEnabled)
		})
	}
}

func TestEntitlementResolver_OneTimeExpiryBoundary(t *testing.T) {
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	expiresAt := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	access := entity.NoAccess()
	access.UnlockedCategories["physio"] = expiresAt
	resource := operator("Maria Rossi", "physio")

	before := resolver.Resolve(access, resource, expiresAt.Add(-time.Second))
	assert.GreaterOrEqual(t, before.Level, entity.PartiallyRevealed)
	assert.Equal(t, usecase.SourceOneTime, before.Source)

	at := resolver.Resolve(access, resource, expiresAt)
	assert.Equal(t, entity.FullyRevealed, at.Level)

	after := resolver.Resolve(access, resource, expiresAt.Add(time.Second))
	assert.Equal(t, entity.Hidden, after.Level)
	assert.Equal(t, usecase.OperatorLabel, after.DisplayName)
}

func TestEntitlementResolver_OneTimeOnlyAppliesToItsCategory(t *testing.T) {
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	access := entity.NoAccess()
	access.UnlockedCategories["physio"] = now.Add(time.Hour)

	assert.Equal(t, entity.FullyRevealed, resolver.Resolve(access, operator("Maria Rossi", "elder", "physio"), now).Level)
	assert.Equal(t, entity.Hidden, resolver.Resolve(access, operator("Luca Bianchi", "elder"), now).Level)
}

func TestEntitlementResolver_HigherPathWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	periodEnd := now.Add(time.Hour)

	access := entity.NoAccess()
	access.SubscriptionTier = entity.TierStandard
	access.SubscriptionStatus = entity.SubscriptionActive
	access.PeriodEnd = &periodEnd
	access.UnlockedCategories["physio"] = now.Add(time.Hour)

	full := usecase.NewEntitlementResolver(entity.FullyRevealed).Resolve(access, operator("Maria Rossi", "physio"), now)
	assert.Equal(t, entity.FullyRevealed, full.Level)
	assert.Equal(t, usecase.SourceOneTime, full.Source)

	// a one-time level below the subscription never downgrades
	partial := usecase.NewEntitlementResolver(entity.PartiallyRevealed)
	access.SubscriptionTier = entity.TierPremium
	decision := partial.Resolve(access, operator("Maria Rossi", "physio"), now)
	assert.Equal(t, entity.FullyRevealed, decision.Level)
	assert.Equal(t, usecase.SourceSubscription, decision.Source)
}

func TestEntitlementResolver_SubscriptionCoversExpiredUnlock(t *testing.T) {
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	periodEnd := now.Add(time.Hour)

	access := entity.NoAccess()
	access.SubscriptionTier = entity.TierStandard
	access.SubscriptionStatus = entity.SubscriptionActive
	access.PeriodEnd = &periodEnd
	access.UnlockedCategories["physio"] = now.Add(-time.Hour)

	decision := resolver.Resolve(access, operator("Maria Rossi", "physio"), now)
	assert.Equal(t, entity.PartiallyRevealed, decision.Level)
	assert.Equal(t, usecase.SourceSubscription, decision.Source)
}

func TestEntitlementResolver_Reveal(t *testing.T) {
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resource := operator("Maria Rossi", "physio")

	hidden := resolver.Reveal(entity.NoAccess(), resource, now)
	assert.Nil(t, hidden.Contact)
	assert.Equal(t, resource.ID, hidden.ID)

	access := entity.NoAccess()
	access.UnlockedCategories["physio"] = now.Add(time.Hour)
	full := resolver.Reveal(access, resource, now)
	if assert.NotNil(t, full.Contact) {
		assert.Equal(t, "op@example.com", full.Contact.Email)
	}
	assert.Equal(t, "Maria Rossi", full.Visibility.DisplayName)
}

func TestEntitlementResolver_ViewerLevel(t *testing.T) {
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	access := entity.NoAccess()
	access.UnlockedCategories["physio"] = now.Add(time.Hour)

	assert.Equal(t, entity.Hidden, resolver.ViewerLevel(access, nil, now))
	assert.Equal(t, entity.FullyRevealed, resolver.ViewerLevel(access, []string{"physio"}, now))
	assert.Equal(t, entity.Hidden, resolver.ViewerLevel(access, []string{"physio", "elder"}, now))

	periodEnd := now.Add(time.Hour)
	access.SubscriptionTier = entity.TierPremium
	access.SubscriptionStatus = entity.SubscriptionActive
	access.PeriodEnd = &periodEnd
	assert.Equal(t, entity.FullyRevealed, resolver.ViewerLevel(access, nil, now))
}

func TestRedactName(t *testing.T) {
	tests := []struct {
		name     string
		typ      entity.ResourceType
		level    entity.VisibilityLevel
		expected string
	}{
		{"Maria Rossi", entity.ResourceOperator, entity.PartiallyRevealed, "Maria R."},
		{"Anna Maria Verdi", entity.ResourceOperator, entity.PartiallyRevealed, "Anna M."},
		{"Maria", entity.ResourceOperator, entity.PartiallyRevealed, "M***"},
		{"Élodie Ñúñez", entity.ResourceOperator, entity.PartiallyRevealed, "Élodie Ñ."},
		{"Łukasz", entity.ResourceOperator, entity.PartiallyRevealed, "Ł***"},
		{"  ", entity.ResourceOperator, entity.PartiallyRevealed, ""},
		{"Casa Serena", entity.ResourceOrganization, entity.Hidden, usecase.OrganizationLabel},
		{"Casa Serena", entity.ResourceOrganization, entity.FullyRevealed, "Casa Serena"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, usecase.RedactName(tt.typ, tt.name, tt.level), tt.name)
	}
}
