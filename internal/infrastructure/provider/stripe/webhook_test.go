package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	"github.com/familu/entitlement-service/internal/domain/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newTestProvider() *StripeProvider {
	return NewStripeProvider("sk_test_x", testSecret, "eur", zap.NewNop())
}

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	p := newTestProvider()
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"mode": "payment",
			"status": "complete",
			"payment_status": "paid",
			"client_reference_id": "attempt-1",
			"customer": "cus_1",
			"metadata": {"identity_id": "id-1", "category_id": "physio"},
			"created": 1699999000
		}}
	}`)

	event, err := p.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, entity.EventCheckoutCompleted, event.Type)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), event.Created)
	require.NotNil(t, event.Session)
	assert.Equal(t, "cs_test_1", event.Session.ID)
	assert.Equal(t, entity.SessionModePayment, event.Session.Mode)
	assert.Equal(t, entity.PaymentStatusPaid, event.Session.PaymentStatus)
	assert.Equal(t, "attempt-1", event.Session.ClientReferenceID)
	assert.Equal(t, "cus_1", event.Session.CustomerID)
	assert.Equal(t, "physio", event.Session.Metadata[entity.MetadataCategoryID])
	assert.Nil(t, event.Subscription)
}

func TestParseWebhook_Subscription(t *testing.T) {
	p := newTestProvider()
	payload := []byte(`{
		"id": "evt_2",
		"object": "event",
		"type": "customer.subscription.updated",
		"created": 1700000100,
		"data": {"object": {
			"id": "sub_1",
			"object": "subscription",
			"customer": "cus_1",
			"status": "past_due",
			"metadata": {"tier": "premium"},
			"items": {"data": [{"current_period_end": 1702592100, "price": {"id": "price_prem"}}]}
		}}
	}`)

	event, err := p.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	require.NotNil(t, event.Subscription)
	assert.Equal(t, "sub_1", event.Subscription.ID)
	assert.Equal(t, "cus_1", event.Subscription.CustomerID)
	assert.Equal(t, "past_due", event.Subscription.Status)
	assert.Equal(t, "price_prem", event.Subscription.PriceID)
	assert.Equal(t, "premium", event.Subscription.Metadata["tier"])
	assert.Equal(t, time.Unix(1702592100, 0).UTC(), event.Subscription.CurrentPeriodEnd)
}

func TestParseWebhook_InvalidSignature(t *testing.T) {
	p := newTestProvider()
	payload := []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := p.ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidSignature))

	_, err = p.ParseWebhook(payload, "")
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidSignature))
}

func TestParseWebhook_StaleTimestamp(t *testing.T) {
	p := newTestProvider()
	payload := []byte(`{"id":"evt_4","object":"event","type":"checkout.session.expired","data":{"object":{}}}`)

	_, err := p.ParseWebhook(payload, sign(payload, testSecret, time.Now().Add(-time.Hour)))
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidSignature))
}

func TestDecodeEvent(t *testing.T) {
	p := newTestProvider()
	payload := []byte(`{"id":"evt_5","object":"event","type":"checkout.session.expired","created":1700000000,
		"data":{"object":{"id":"cs_5","object":"checkout.session","mode":"payment","status":"expired","payment_status":"unpaid"}}}`)

	event, err := p.DecodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, entity.EventCheckoutExpired, event.Type)
	assert.Equal(t, "cs_5", event.Session.ID)
	assert.Equal(t, entity.PaymentStatusUnpaid, event.Session.PaymentStatus)
}

func TestExpandableID(t *testing.T) {
	assert.Equal(t, "cus_1", expandableID([]byte(`"cus_1"`)))
	assert.Equal(t, "cus_2", expandableID([]byte(`{"id":"cus_2","object":"customer"}`)))
	assert.Equal(t, "", expandableID(nil))
}

func TestClassifyError(t *testing.T) {
	ctx := context.Background()

	err := classifyError(ctx, "create", &stripe.Error{HTTPStatusCode: 503, Type: stripe.ErrorTypeAPI})
	var perr *provider.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Temporary)

	err = classifyError(ctx, "create", &stripe.Error{HTTPStatusCode: 400, Code: stripe.ErrorCodeResourceMissing})
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Temporary)
	assert.Equal(t, string(stripe.ErrorCodeResourceMissing), perr.Code)

	expired, cancel := context.WithTimeout(ctx, time.Nanosecond)
	defer cancel()
	<-expired.Done()
	err = classifyError(expired, "create", context.DeadlineExceeded)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "TIMEOUT", perr.Code)
	assert.True(t, perr.Temporary)
}
