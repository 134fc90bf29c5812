package stripe

import (
	"context"

	"github.com/familu/entitlement-service/internal/domain/provider"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
	"go.uber.org/zap"
)

// FindOrCreateCustomer looks the payer up by email before creating a new customer,
// so repeated checkouts by the same payer share one Stripe customer.
func (s *StripeProvider) FindOrCreateCustomer(ctx context.Context, req *provider.CustomerRequest) (string, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(req.Email),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := customer.List(listParams)
	for iter.Next() {
		existing := iter.Customer()
		s.logger.Debug("Found existing Stripe customer",
			zap.String("customer_id", existing.ID),
			zap.String("identity_id", req.IdentityID))
		return existing.ID, nil
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("Failed to list Stripe customers", zap.Error(err))
		return "", classifyError(ctx, "list customers", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
	}
	params.Context = ctx
	params.AddMetadata("identity_id", req.IdentityID)

	created, err := customer.New(params)
	if err != nil {
		s.logger.Error("Failed to create Stripe customer",
			zap.String("identity_id", req.IdentityID),
			zap.Error(err))
		return "", classifyError(ctx, "create customer", err)
	}

	s.logger.Info("Created Stripe customer",
		zap.String("customer_id", created.ID),
		zap.String("identity_id", req.IdentityID))

	return created.ID, nil
}
