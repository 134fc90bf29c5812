package repository

import (
	"context"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/google/uuid"
)

type CustomerMappingRepository interface {
	// Upsert creates or replaces the mapping of mapping.IdentityID.
	Upsert(ctx context.Context, mapping *entity.CustomerMapping) error
	GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*entity.CustomerMapping, error)
	GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*entity.CustomerMapping, error)
}
