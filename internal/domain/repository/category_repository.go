package repository

import (
	"context"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
)

// CategoryRepository reads the catalog. Writes come only from the catalog sync command.
type CategoryRepository interface {
	List(ctx context.Context) ([]*entity.Category, error)
	// GetByID returns nil, nil for unknown or inactive categories.
	GetByID(ctx context.Context, id string) (*entity.Category, error)
	Upsert(ctx context.Context, categories []*model.Category) error
	DeactivateMissing(ctx context.Context, keepIDs []string) (int64, error)
}
