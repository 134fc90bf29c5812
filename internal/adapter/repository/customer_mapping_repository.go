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

type customerMappingRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCustomerMappingRepository(db *gorm.DB, logger *zap.Logger) repository.CustomerMappingRepository {
	return &customerMappingRepository{
		db:     db,
		logger: logger,
	}
}

// modelToEntity converts a model.CustomerMapping to entity.CustomerMapping
func (r *customerMappingRepository) modelToEntity(m *model.CustomerMapping) *entity.CustomerMapping {
	if m == nil {
		return nil
	}
	return &entity.CustomerMapping{
		ID:                 m.ID,
		Provider:           m.Provider,
		ProviderCustomerID: m.ProviderCustomerID,
		IdentityID:         m.IdentityID,
		Email:              m.CustomerEmail,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func (r *customerMappingRepository) Upsert(ctx context.Context, mapping *entity.CustomerMapping) error {
	row := &model.CustomerMapping{
		Provider:           mapping.Provider,
		ProviderCustomerID: mapping.ProviderCustomerID,
		IdentityID:         mapping.IdentityID,
		CustomerEmail:      mapping.Email,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"provider", "provider_customer_id", "customer_email", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		r.logger.Error("Failed to upsert customer mapping",
			zap.String("identity_id", mapping.IdentityID.String()),
			zap.String("customer_id", mapping.ProviderCustomerID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert customer mapping: %w", err)
	}
	return nil
}

func (r *customerMappingRepository) GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*entity.CustomerMapping, error) {
	var mapping model.CustomerMapping
	err := r.db.WithContext(ctx).Where("provider_customer_id = ?", providerCustomerID).First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.modelToEntity(&mapping), nil
}

func (r *customerMappingRepository) GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*entity.CustomerMapping, error) {
	var mapping model.CustomerMapping
	err := r.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.modelToEntity(&mapping), nil
}
