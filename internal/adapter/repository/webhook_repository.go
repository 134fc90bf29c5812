package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxWebhookAttempts caps retries of a failed event before it is left for manual review.
const maxWebhookAttempts = 8

// WebhookRepository handles webhook event storage and processing
type WebhookRepository interface {
	// SaveEvent journals the event, reporting false if it was already journaled
	SaveEvent(ctx context.Context, event *entity.ProcessorEvent) (bool, error)
	GetEvent(ctx context.Context, eventID string) (*model.StripeWebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string, status model.WebhookStatus) error
	MarkFailed(ctx context.Context, eventID string, err error) error
	GetPendingEvents(ctx context.Context, createdBefore time.Time, limit int) ([]*model.StripeWebhookEvent, error)
}

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) WebhookRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// SaveEvent saves a new webhook event
func (r *webhookRepository) SaveEvent(ctx context.Context, event *entity.ProcessorEvent) (bool, error) {
	var eventData map[string]interface{}
	if err := json.Unmarshal(event.Payload, &eventData); err != nil {
		r.logger.Warn("Failed to parse event data",
			zap.String("event_id", event.ID),
			zap.Error(err))
		eventData = map[string]interface{}{}
	}

	createdAt := event.Created
	row := &model.StripeWebhookEvent{
		StripeEventID:   event.ID,
		EventType:       string(event.Type),
		Status:          model.WebhookStatusPending,
		Data:            model.JSONB(eventData),
		StripeCreatedAt: &createdAt,
	}

	// Use ON CONFLICT to handle duplicate events
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)

	if result.Error != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to save webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetEvent retrieves a webhook event by ID
func (r *webhookRepository) GetEvent(ctx context.Context, eventID string) (*model.StripeWebhookEvent, error) {
	var event model.StripeWebhookEvent

	err := r.db.WithContext(ctx).
		Where("stripe_event_id = ?", eventID).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// MarkProcessed marks a webhook event as completed or ignored
func (r *webhookRepository) MarkProcessed(ctx context.Context, eventID string, status model.WebhookStatus) error {
	now := time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&model.StripeWebhookEvent{}).
		Where("stripe_event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":        status,
			"processed_at":  &now,
			"next_retry_at": nil,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as processed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as processed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", eventID)
	}

	return nil
}

// MarkFailed records the error and schedules a retry with exponential backoff
func (r *webhookRepository) MarkFailed(ctx context.Context, eventID string, err error) error {
	var event model.StripeWebhookEvent
	if dbErr := r.db.WithContext(ctx).
		Where("stripe_event_id = ?", eventID).
		First(&event).Error; dbErr != nil {
		r.logger.Error("Failed to get webhook event for failure update",
			zap.String("event_id", eventID),
			zap.Error(dbErr))
		return fmt.Errorf("failed to get webhook event: %w", dbErr)
	}

	attempts := event.ProcessingAttempts + 1
	retryMinutes := 5 * (1 << attempts) // 10, 20, 40, etc.
	if retryMinutes > 1440 {            // Cap at 24 hours
		retryMinutes = 1440
	}

	var nextRetry *time.Time
	if attempts < maxWebhookAttempts {
		t := time.Now().UTC().Add(time.Duration(retryMinutes) * time.Minute)
		nextRetry = &t
	}

	errorMsg := err.Error()

	result := r.db.WithContext(ctx).
		Model(&model.StripeWebhookEvent{}).
		Where("stripe_event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusFailed,
			"processing_attempts": attempts,
			"last_error":          &errorMsg,
			"next_retry_at":       nextRetry,
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook as failed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook as failed: %w", result.Error)
	}

	return nil
}

// GetPendingEvents returns events left pending before createdBefore and failed
// events whose retry time has come
func (r *webhookRepository) GetPendingEvents(ctx context.Context, createdBefore time.Time, limit int) ([]*model.StripeWebhookEvent, error) {
	var events []*model.StripeWebhookEvent

	query := r.db.WithContext(ctx).
		Where("(status = ? AND created_at < ?) OR (status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?)",
			model.WebhookStatusPending,
			createdBefore,
			model.WebhookStatusFailed,
			time.Now().UTC()).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&events).Error
	if err != nil {
		r.logger.Error("Failed to get pending webhook events",
			zap.Error(err))
		return nil, fmt.Errorf("failed to get pending webhook events: %w", err)
	}

	return events, nil
}
