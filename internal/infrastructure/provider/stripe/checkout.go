package stripe

import (
	"context"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/provider"
	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/zap"
)

// CreateCheckoutSession creates a hosted checkout with a single line item
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutSessionRequest) (*entity.CheckoutSession, error) {
	lineItem := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
	}
	if req.PriceID != "" {
		lineItem.Price = stripe.String(req.PriceID)
	} else {
		currency := req.Currency
		if currency == "" {
			currency = s.currency
		}
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(req.Amount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(req.ProductName),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(req.Mode),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{lineItem},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Customer:   stripe.String(req.CustomerID),
	}
	params.Context = ctx
	if req.ClientRef != "" {
		params.ClientReferenceID = stripe.String(req.ClientRef)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.Mode == string(stripe.CheckoutSessionModeSubscription) {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		}
	} else {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		}
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("customer_id", req.CustomerID),
			zap.String("mode", req.Mode),
			zap.Error(err))
		return nil, classifyError(ctx, "create checkout session", err)
	}

	s.logger.Info("Created checkout session",
		zap.String("session_id", sess.ID),
		zap.String("customer_id", req.CustomerID),
		zap.String("mode", req.Mode))

	return toCheckoutSession(sess), nil
}

// GetCheckoutSession fetches the current state of a session
func (s *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*entity.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent.latest_charge")

	sess, err := checkoutsession.Get(sessionID, params)
	if err != nil {
		s.logger.Error("Failed to get checkout session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, classifyError(ctx, "get checkout session", err)
	}

	return toCheckoutSession(sess), nil
}

// CreatePortalSession opens the billing portal for customerID
func (s *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	ps, err := portalsession.New(params)
	if err != nil {
		s.logger.Error("Error creating portal session",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return "", classifyError(ctx, "create portal session", err)
	}

	return ps.URL, nil
}

func toCheckoutSession(sess *stripe.CheckoutSession) *entity.CheckoutSession {
	out := &entity.CheckoutSession{
		ID:                sess.ID,
		URL:               sess.URL,
		Mode:              string(sess.Mode),
		Status:            string(sess.Status),
		PaymentStatus:     string(sess.PaymentStatus),
		ClientReferenceID: sess.ClientReferenceID,
		Metadata:          sess.Metadata,
		Created:           time.Unix(sess.Created, 0).UTC(),
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	switch {
	case sess.PaymentIntent != nil && sess.PaymentIntent.LatestCharge != nil && sess.PaymentIntent.LatestCharge.Created > 0:
		out.SettledAt = time.Unix(sess.PaymentIntent.LatestCharge.Created, 0).UTC()
	case sess.Status == stripe.CheckoutSessionStatusExpired && sess.ExpiresAt > 0:
		out.SettledAt = time.Unix(sess.ExpiresAt, 0).UTC()
	}
	return out
}
