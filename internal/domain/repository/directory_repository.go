package repository

import (
	"context"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/google/uuid"
)

// DirectoryFilter narrows a directory search. CategoryIDs match any-of.
type DirectoryFilter struct {
	Text        string
	Location    string
	CategoryIDs []string
}

// DirectoryRepository reads provider profiles owned by profile management
type DirectoryRepository interface {
	SearchOperators(ctx context.Context, filter DirectoryFilter) ([]*entity.Resource, error)
	SearchOrganizations(ctx context.Context, filter DirectoryFilter) ([]*entity.Resource, error)
	// Get returns nil, nil when the resource does not exist or is inactive.
	Get(ctx context.Context, resourceType entity.ResourceType, id uuid.UUID) (*entity.Resource, error)
}
