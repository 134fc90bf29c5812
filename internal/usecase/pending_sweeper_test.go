package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/usecase"
)

func TestPendingSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	identity := newIdentity()

	paid := f.pendingAttempt(t, identity, "cs_paid")
	expired := f.pendingAttempt(t, identity, "cs_expired")
	open := f.pendingAttempt(t, identity, "cs_open")
	f.pendingAttempt(t, identity, "")

	session := func(id string, ref string, status, paymentStatus string) *entity.CheckoutSession {
		return &entity.CheckoutSession{
			ID: id, Mode: entity.SessionModePayment, Status: status, PaymentStatus: paymentStatus,
			ClientReferenceID: ref,
			Metadata:          map[string]string{entity.MetadataIdentityID: identity.ID.String()},
		}
	}
	f.provider.On("GetCheckoutSession", mock.Anything, "cs_paid").Return(session("cs_paid", paid.String(), "complete", "paid"), nil).Once()
	f.provider.On("GetCheckoutSession", mock.Anything, "cs_expired").Return(session("cs_expired", expired.String(), "expired", "unpaid"), nil).Once()
	f.provider.On("GetCheckoutSession", mock.Anything, "cs_open").Return(session("cs_open", open.String(), "open", "unpaid"), nil).Once()

	// rows are stamped with the wall clock, so sweep from an hour ahead of it
	sweeper := usecase.NewPendingSweeper(f.ledger, f.settlement, usecase.PendingSweeperConfig{Grace: 15 * time.Minute}, zap.NewNop()).
		WithClock(func() time.Time { return time.Now().UTC().Add(time.Hour) })

	stats := sweeper.Sweep(ctx)
	assert.Equal(t, 3, stats.Polled)
	assert.Equal(t, 2, stats.Settled)
	assert.Equal(t, 0, stats.Failures)
	f.provider.AssertExpectations(t)

	for ref, status := range map[string]entity.OneTimeStatus{
		paid.String():    entity.OneTimePaid,
		expired.String(): entity.OneTimeFailed,
		open.String():    entity.OneTimePending,
	} {
		row, err := f.ledger.FindAttempt(ctx, "", ref)
		require.NoError(t, err)
		assert.Equal(t, status, row.Status, ref)
	}

	// nothing is due within the grace period
	fresh := usecase.NewPendingSweeper(f.ledger, f.settlement, usecase.PendingSweeperConfig{Grace: 15 * time.Minute}, zap.NewNop())
	assert.Equal(t, 0, fresh.Sweep(ctx).Polled)
}

func TestPendingSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	sweeper := usecase.NewPendingSweeper(f.ledger, f.settlement, usecase.PendingSweeperConfig{Interval: time.Hour}, zap.NewNop())

	require.NoError(t, sweeper.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sweeper.Stop(ctx))
}
