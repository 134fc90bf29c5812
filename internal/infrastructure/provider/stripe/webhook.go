package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

// ParseWebhook verifies the Stripe-Signature header and decodes the event
func (s *StripeProvider) ParseWebhook(payload []byte, signature string) (*entity.ProcessorEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		s.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}

	return s.convertEvent(event, payload)
}

// DecodeEvent decodes a journaled event without verifying it again
func (s *StripeProvider) DecodeEvent(payload []byte) (*entity.ProcessorEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return s.convertEvent(event, payload)
}

func (s *StripeProvider) convertEvent(event stripe.Event, payload []byte) (*entity.ProcessorEvent, error) {
	out := &entity.ProcessorEvent{
		ID:      event.ID,
		Type:    entity.ProcessorEventType(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
		Payload: payload,
	}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case entity.EventCheckoutCompleted, entity.EventCheckoutAsyncSucceeded,
		entity.EventCheckoutAsyncFailed, entity.EventCheckoutExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		out.Session = toCheckoutSession(&sess)

	case entity.EventSubscriptionCreated, entity.EventSubscriptionUpdated, entity.EventSubscriptionDeleted:
		sub, err := parseSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Subscription = sub
	}

	return out, nil
}

// parseSubscription reads the raw object so period end is found on both
// the subscription and, for newer API versions, its first item.
func parseSubscription(raw json.RawMessage) (*entity.ProcessorSubscription, error) {
	var data struct {
		ID               string            `json:"id"`
		Customer         json.RawMessage   `json:"customer"`
		Status           string            `json:"status"`
		Metadata         map[string]string `json:"metadata"`
		CurrentPeriodEnd int64             `json:"current_period_end"`
		Items            struct {
			Data []struct {
				CurrentPeriodEnd int64 `json:"current_period_end"`
				Price            struct {
					ID string `json:"id"`
				} `json:"price"`
			} `json:"data"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse subscription: %w", err)
	}

	sub := &entity.ProcessorSubscription{
		ID:         data.ID,
		CustomerID: expandableID(data.Customer),
		Status:     data.Status,
		Metadata:   data.Metadata,
	}
	if sub.Metadata == nil {
		sub.Metadata = map[string]string{}
	}

	periodEnd := data.CurrentPeriodEnd
	if len(data.Items.Data) > 0 {
		item := data.Items.Data[0]
		sub.PriceID = item.Price.ID
		if periodEnd == 0 {
			periodEnd = item.CurrentPeriodEnd
		}
	}
	if periodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(periodEnd, 0).UTC()
	}

	return sub, nil
}

// expandableID accepts either an id string or an expanded object.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
