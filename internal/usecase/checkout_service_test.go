package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/familu/entitlement-service/internal/domain/entity"
	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	"github.com/familu/entitlement-service/internal/domain/provider"
)

func TestCheckoutService_StartCheckout_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.checkout.StartCheckout(ctx, entity.Anonymous, entity.Product{Kind: entity.ProductOneTime, CategoryID: "physio"})
	assert.ErrorIs(t, err, domainErrors.ErrNotAuthenticated)

	tests := []struct {
		name    string
		product entity.Product
		target  error
	}{
		{"unknown tier", entity.Product{Kind: entity.ProductSubscription, Tier: "gold"}, domainErrors.ErrInvalidProduct},
		{"free tier", entity.Product{Kind: entity.ProductSubscription, Tier: entity.TierFree}, domainErrors.ErrInvalidProduct},
		{"unknown category", entity.Product{Kind: entity.ProductOneTime, CategoryID: "missing"}, domainErrors.ErrInvalidCategory},
		{"category without price", entity.Product{Kind: entity.ProductOneTime, CategoryID: "nursing"}, domainErrors.ErrInvalidCategory},
		{"unknown kind", entity.Product{Kind: "bundle"}, domainErrors.ErrInvalidProduct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.checkout.StartCheckout(ctx, newIdentity(), tt.product)
			assert.ErrorIs(t, err, tt.target)
			assert.NotErrorIs(t, err, domainErrors.ErrCheckoutUnavailable)
		})
	}

	f.provider.AssertNotCalled(t, "FindOrCreateCustomer", mock.Anything, mock.Anything)
}

func TestCheckoutService_StartCheckout_OneTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	identity := newIdentity()

	f.provider.On("FindOrCreateCustomer", mock.Anything, &provider.CustomerRequest{
		IdentityID: identity.ID.String(),
		Email:      identity.Email,
	}).Return("cus_1", nil).Once()

	var captured *provider.CheckoutSessionRequest
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.AnythingOfType("*provider.CheckoutSessionRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*provider.CheckoutSessionRequest)
		}).
		Return(&entity.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.com/c/cs_123"}, nil).Once()

	result, err := f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductOneTime, CategoryID: "physio"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_123", result.URL)
	assert.Equal(t, "cs_123", result.SessionID)
	require.NotEmpty(t, result.AttemptRef)

	require.NotNil(t, captured)
	assert.Equal(t, "cus_1", captured.CustomerID)
	assert.Equal(t, entity.SessionModePayment, captured.Mode)
	assert.Equal(t, int64(1990), captured.Amount)
	assert.Equal(t, "eur", captured.Currency)
	assert.Equal(t, "Premium access - Fisioterapia", captured.ProductName)
	assert.Equal(t, result.AttemptRef, captured.ClientRef)
	assert.Equal(t, identity.ID.String(), captured.Metadata[entity.MetadataIdentityID])
	assert.Equal(t, result.AttemptRef, captured.Metadata[entity.MetadataAttemptID])
	assert.Equal(t, "physio", captured.Metadata[entity.MetadataCategoryID])
	assert.Equal(t, "https://familu.example.com/payment-success?category=physio&type=one-time&session_id={CHECKOUT_SESSION_ID}", captured.SuccessURL)
	assert.Equal(t, "https://familu.example.com/pricing", captured.CancelURL)

	row, err := f.oneTime.GetBySessionID(ctx, "cs_123")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, result.AttemptRef, row.ID.String())
	assert.Equal(t, entity.OneTimePending, row.Status)

	mapping, err := f.mappings.GetByIdentityID(ctx, identity.ID)
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "cus_1", mapping.ProviderCustomerID)

	// checkout never grants access by itself
	access, err := f.ledger.CurrentAccess(ctx, identity)
	require.NoError(t, err)
	assert.Empty(t, access.UnlockedCategories)

	f.provider.AssertExpectations(t)
}

func TestCheckoutService_StartCheckout_Subscription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	identity := newIdentity()

	f.provider.On("FindOrCreateCustomer", mock.Anything, mock.Anything).Return("cus_2", nil).Once()
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req *provider.CheckoutSessionRequest) bool {
		return req.Mode == entity.SessionModeSubscription &&
			req.PriceID == "price_premium" &&
			req.Metadata[entity.MetadataTier] == "premium" &&
			req.Metadata[entity.MetadataIdentityID] == identity.ID.String() &&
			req.SuccessURL == "https://familu.example.com/payment-success?tier=premium&type=subscription&session_id={CHECKOUT_SESSION_ID}"
	})).Return(&entity.CheckoutSession{ID: "cs_sub", URL: "https://checkout.stripe.com/c/cs_sub"}, nil).Once()

	result, err := f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductSubscription, Tier: entity.TierPremium})
	require.NoError(t, err)
	assert.Equal(t, "cs_sub", result.SessionID)
	assert.Empty(t, result.AttemptRef)

	purchases, err := f.ledger.ListOneTime(ctx, identity, entity.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, purchases.Data)

	f.provider.AssertExpectations(t)
}

func TestCheckoutService_StartCheckout_ProcessorUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("customer lookup fails", func(t *testing.T) {
		f := newFixture(t)
		identity := newIdentity()
		f.provider.On("FindOrCreateCustomer", mock.Anything, mock.Anything).
			Return("", &provider.ProviderError{Code: "TIMEOUT", Message: "timeout", Temporary: true}).Once()

		_, err := f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductOneTime, CategoryID: "physio"})
		assert.ErrorIs(t, err, domainErrors.ErrCheckoutUnavailable)

		var providerErr *provider.ProviderError
		assert.True(t, errors.As(err, &providerErr))

		purchases, err := f.ledger.ListOneTime(ctx, identity, entity.PaginationParams{})
		require.NoError(t, err)
		assert.Empty(t, purchases.Data)
		f.provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("session creation fails once, not retried", func(t *testing.T) {
		f := newFixture(t)
		identity := newIdentity()
		f.provider.On("FindOrCreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil).Once()
		f.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(nil, errors.New("connection reset")).Once()

		_, err := f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductOneTime, CategoryID: "physio"})
		assert.ErrorIs(t, err, domainErrors.ErrCheckoutUnavailable)
		f.provider.AssertNumberOfCalls(t, "CreateCheckoutSession", 1)

		purchases, err := f.ledger.ListOneTime(ctx, identity, entity.PaginationParams{})
		require.NoError(t, err)
		require.Len(t, purchases.Data, 1)
		assert.Equal(t, entity.OneTimePending, purchases.Data[0].Status)
		assert.Empty(t, purchases.Data[0].CheckoutSessionID)
	})
}

func TestCheckoutService_StartCheckout_RequiresEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	identity := newIdentity()
	identity.Email = "  "

	_, err := f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductOneTime, CategoryID: "physio"})
	assert.ErrorIs(t, err, domainErrors.ErrNotAuthenticated)

	purchases, err := f.ledger.ListOneTime(ctx, identity, entity.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, purchases.Data)
	f.provider.AssertNotCalled(t, "FindOrCreateCustomer", mock.Anything, mock.Anything)
}

func TestCheckoutService_StartCheckout_ActiveSubscriptionUsesPortal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	identity := newIdentity()

	_, err := f.ledger.UpsertSubscription(ctx, identity.ID, entity.TierStandard, entity.SubscriptionActive,
		baseTime.Add(30*24*time.Hour), entity.ExternalRefs{CustomerID: "cus_1", SubscriptionID: "sub_1"}, baseTime)
	require.NoError(t, err)

	_, err = f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductSubscription, Tier: entity.TierPremium})
	assert.ErrorIs(t, err, domainErrors.ErrSubscriptionExists)
	f.provider.AssertNotCalled(t, "FindOrCreateCustomer", mock.Anything, mock.Anything)
	f.provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)

	// one-time unlocks stay available to subscribers
	f.provider.On("FindOrCreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil).Once()
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&entity.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil).Once()
	_, err = f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductOneTime, CategoryID: "physio"})
	require.NoError(t, err)

	// a canceled subscription no longer blocks a new one
	_, err = f.ledger.UpsertSubscription(ctx, identity.ID, entity.TierStandard, entity.SubscriptionCanceled,
		baseTime, entity.ExternalRefs{CustomerID: "cus_1", SubscriptionID: "sub_1"}, baseTime.Add(time.Hour))
	require.NoError(t, err)
	f.provider.On("FindOrCreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil).Once()
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&entity.CheckoutSession{ID: "cs_2", URL: "https://checkout.stripe.com/c/cs_2"}, nil).Once()
	result, err := f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductSubscription, Tier: entity.TierPremium})
	require.NoError(t, err)
	assert.Equal(t, "cs_2", result.SessionID)
	f.provider.AssertExpectations(t)
}

func TestCheckoutService_StartCheckout_ProcessorRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	identity := newIdentity()
	f.provider.On("FindOrCreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil).Once()
	f.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, &provider.ProviderError{Code: "resource_missing", Message: "no such price", Temporary: false}).Once()

	_, err := f.checkout.StartCheckout(ctx, identity, entity.Product{Kind: entity.ProductSubscription, Tier: entity.TierPremium})
	assert.ErrorIs(t, err, domainErrors.ErrProcessorRejected)
	assert.NotErrorIs(t, err, domainErrors.ErrCheckoutUnavailable)
}

func TestCheckoutService_CreatePortalSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	identity := newIdentity()

	_, err := f.checkout.CreatePortalSession(ctx, entity.Anonymous)
	assert.ErrorIs(t, err, domainErrors.ErrNotAuthenticated)

	_, err = f.checkout.CreatePortalSession(ctx, identity)
	assert.ErrorIs(t, err, domainErrors.ErrNoCustomerMapping)

	require.NoError(t, f.mappings.Upsert(ctx, &entity.CustomerMapping{
		Provider: "stripe", ProviderCustomerID: "cus_9", IdentityID: identity.ID, Email: identity.Email,
	}))
	f.provider.On("CreatePortalSession", mock.Anything, "cus_9", "https://familu.example.com/account").
		Return("https://billing.stripe.com/p/session_1", nil).Once()

	url, err := f.checkout.CreatePortalSession(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session_1", url)
	f.provider.AssertExpectations(t)
}
