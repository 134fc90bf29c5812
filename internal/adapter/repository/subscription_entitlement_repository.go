package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionEntitlementRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionEntitlementRepository creates a new subscription entitlement repository
func NewSubscriptionEntitlementRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionEntitlementRepository {
	return &subscriptionEntitlementRepository{
		db:     db,
		logger: logger,
	}
}

func (r *subscriptionEntitlementRepository) GetByIdentity(ctx context.Context, identityID uuid.UUID) (*entity.SubscriptionEntitlement, error) {
	var row model.SubscriptionEntitlement

	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription entitlement",
			zap.String("identity_id", identityID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription entitlement: %w", err)
	}

	return &entity.SubscriptionEntitlement{
		IdentityID:             row.IdentityID,
		Tier:                   entity.Tier(row.Tier),
		Status:                 entity.SubscriptionStatus(row.Status),
		CurrentPeriodEnd:       row.CurrentPeriodEnd,
		ProviderCustomerID:     row.ProviderCustomerID,
		ProviderSubscriptionID: row.ProviderSubscriptionID,
		LastEventAt:            row.LastEventAt,
		UpdatedAt:              row.UpdatedAt,
	}, nil
}

// Upsert writes the row in one statement. The conflict branch only fires when
// the stored event is not newer than the incoming one, and never lets an
// inactive state of another subscription replace an active row.
func (r *subscriptionEntitlementRepository) Upsert(ctx context.Context, s *entity.SubscriptionEntitlement) (bool, error) {
	row := &model.SubscriptionEntitlement{
		IdentityID:             s.IdentityID,
		Tier:                   string(s.Tier),
		Status:                 string(s.Status),
		CurrentPeriodEnd:       s.CurrentPeriodEnd,
		ProviderCustomerID:     s.ProviderCustomerID,
		ProviderSubscriptionID: s.ProviderSubscriptionID,
		LastEventAt:            s.LastEventAt,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tier",
				"status",
				"current_period_end",
				"provider_customer_id",
				"provider_subscription_id",
				"last_event_at",
				"updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "subscription_entitlements.last_event_at <= excluded.last_event_at"},
				clause.Expr{
					SQL: "(excluded.status = ? OR subscription_entitlements.status <> ? OR " +
						"COALESCE(subscription_entitlements.provider_subscription_id, '') = '' OR " +
						"subscription_entitlements.provider_subscription_id = excluded.provider_subscription_id)",
					Vars: []interface{}{string(entity.SubscriptionActive), string(entity.SubscriptionActive)},
				},
			}},
		}).
		Create(row)
	if result.Error != nil {
		r.logger.Error("Failed to upsert subscription entitlement",
			zap.String("identity_id", s.IdentityID.String()),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to upsert subscription entitlement: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
