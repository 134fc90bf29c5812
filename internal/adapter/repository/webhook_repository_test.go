package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookRepository_Journal(t *testing.T) {
	db := newTestDB(t)
	repo := NewWebhookRepository(db, zap.NewNop())
	ctx := context.Background()

	event := &entity.ProcessorEvent{
		ID:      "evt_1",
		Type:    entity.EventCheckoutCompleted,
		Created: time.Unix(1700000000, 0).UTC(),
		Payload: []byte(`{"id":"evt_1","type":"checkout.session.completed"}`),
	}

	created, err := repo.SaveEvent(ctx, event)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.SaveEvent(ctx, event)
	require.NoError(t, err)
	assert.False(t, created, "duplicate deliveries are journaled once")

	stored, err := repo.GetEvent(ctx, "evt_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.WebhookStatusPending, stored.Status)
	assert.Equal(t, "evt_1", stored.Data["id"])

	pending, err := repo.GetPendingEvents(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, repo.MarkFailed(ctx, "evt_1", errors.New("db down")))
	stored, err = repo.GetEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, model.WebhookStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.ProcessingAttempts)
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now()))

	pending, err = repo.GetPendingEvents(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed events wait for their retry time")

	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", model.WebhookStatusCompleted))
	stored, err = repo.GetEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, model.WebhookStatusCompleted, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	assert.Error(t, repo.MarkProcessed(ctx, "evt_missing", model.WebhookStatusCompleted))
}
