package stripe

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/familu/entitlement-service/internal/domain/provider"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

// StripeProvider implements the PaymentProvider interface for Stripe
type StripeProvider struct {
	webhookSecret string
	currency      string
	logger        *zap.Logger
}

// NewStripeProvider configures the Stripe client and returns a provider
func NewStripeProvider(secretKey, webhookSecret, currency string, logger *zap.Logger) *StripeProvider {
	stripe.Key = secretKey

	return &StripeProvider{
		webhookSecret: webhookSecret,
		currency:      currency,
		logger:        logger,
	}
}

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return string(provider.ProviderTypeStripe)
}

// classifyError converts a Stripe or transport error into a ProviderError.
func classifyError(ctx context.Context, op string, err error) error {
	perr := &provider.ProviderError{
		Code:    "STRIPE_ERROR",
		Message: "stripe: " + op + " failed",
		Details: err.Error(),
	}

	var stripeErr *stripe.Error
	var netErr net.Error
	switch {
	case errors.As(err, &stripeErr):
		perr.Code = string(stripeErr.Code)
		if perr.Code == "" {
			perr.Code = string(stripeErr.Type)
		}
		perr.Temporary = stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.HTTPStatusCode == 0
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		perr.Code = "TIMEOUT"
		perr.Temporary = true
	case errors.As(err, &netErr):
		perr.Code = "NETWORK"
		perr.Temporary = true
	default:
		perr.Temporary = true
	}

	return perr
}
