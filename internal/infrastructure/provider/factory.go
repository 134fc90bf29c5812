package provider

import (
	"fmt"

	"github.com/familu/entitlement-service/internal/config"
	"github.com/familu/entitlement-service/internal/domain/provider"
	stripeProvider "github.com/familu/entitlement-service/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Factory creates payment providers based on the provider type
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GetProvider returns a payment provider based on the provider type
func (f *Factory) GetProvider(providerType provider.ProviderType) (provider.PaymentProvider, error) {
	switch providerType {
	case provider.ProviderTypeStripe, "":
		return f.createStripeProvider()
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// createStripeProvider creates a new Stripe provider instance
func (f *Factory) createStripeProvider() (provider.PaymentProvider, error) {
	if f.config.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("Stripe secret key not configured")
	}
	if f.config.Stripe.WebhookSecret == "" {
		return nil, fmt.Errorf("Stripe webhook secret not configured")
	}

	return stripeProvider.NewStripeProvider(
		f.config.Stripe.SecretKey,
		f.config.Stripe.WebhookSecret,
		f.config.Stripe.Currency,
		f.logger.Named("stripe"),
	), nil
}
