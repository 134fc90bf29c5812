package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPreviewLimit is how many results a restricted viewer receives.
const DefaultPreviewLimit = 3

// AccessReader resolves what an identity currently holds
type AccessReader interface {
	CurrentAccess(ctx context.Context, identity entity.Identity) (entity.Access, error)
}

// SearchService composes directory results with redaction and the preview cap
type SearchService struct {
	directory    domainRepo.DirectoryRepository
	access       AccessReader
	resolver     *EntitlementResolver
	previewLimit int
	now          func() time.Time
	logger       *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(
	directory domainRepo.DirectoryRepository,
	access AccessReader,
	resolver *EntitlementResolver,
	previewLimit int,
	logger *zap.Logger,
) *SearchService {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	return &SearchService{
		directory:    directory,
		access:       access,
		resolver:     resolver,
		previewLimit: previewLimit,
		now:          utcNow,
		logger:       logger,
	}
}

// WithClock replaces the clock used for expiry checks
func (s *SearchService) WithClock(now func() time.Time) *SearchService {
	s.now = now
	return s
}

// viewerAccess never fails the read; a ledger error degrades to no access
func (s *SearchService) viewerAccess(ctx context.Context, identity entity.Identity) entity.Access {
	access, err := s.access.CurrentAccess(ctx, identity)
	if err != nil {
		s.logger.Warn("Failed to read access, treating viewer as unentitled",
			zap.String("identity_id", identity.ID.String()),
			zap.Error(err))
		return entity.NoAccess()
	}
	return access
}

// Search finds operators and organizations and redacts them for identity.
// Viewers below FullyRevealed for the searched categories get a preview.
func (s *SearchService) Search(ctx context.Context, identity entity.Identity, query entity.SearchQuery) (*entity.SearchResult, error) {
	if query.Type != "" && !query.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", domainErrors.ErrInvalidQuery, query.Type)
	}

	filter := domainRepo.DirectoryFilter{
		Text:        query.Text,
		Location:    query.Location,
		CategoryIDs: query.CategoryIDs,
	}

	var resources []*entity.Resource
	if query.Type == "" || query.Type == entity.ResourceOperator {
		operators, err := s.directory.SearchOperators(ctx, filter)
		if err != nil {
			return nil, err
		}
		resources = append(resources, operators...)
	}
	if query.Type == "" || query.Type == entity.ResourceOrganization {
		organizations, err := s.directory.SearchOrganizations(ctx, filter)
		if err != nil {
			return nil, err
		}
		resources = append(resources, organizations...)
	}

	now := s.now()
	access := s.viewerAccess(ctx, identity)
	viewerLevel := s.resolver.ViewerLevel(access, query.CategoryIDs, now)

	result := &entity.SearchResult{
		TotalCount:  len(resources),
		ViewerLevel: viewerLevel,
	}
	if viewerLevel != entity.FullyRevealed && len(resources) > s.previewLimit {
		resources = resources[:s.previewLimit]
		result.Capped = true
	}

	result.Results = make([]entity.RevealedResource, 0, len(resources))
	for _, resource := range resources {
		result.Results = append(result.Results, s.resolver.Reveal(access, resource, now))
	}

	s.logger.Debug("Search composed",
		zap.String("query", query.Text),
		zap.Strings("categories", query.CategoryIDs),
		zap.Int("total", result.TotalCount),
		zap.Int("returned", len(result.Results)),
		zap.Stringer("viewer_level", viewerLevel))

	return result, nil
}

// Profile returns a single resource redacted for identity
func (s *SearchService) Profile(ctx context.Context, identity entity.Identity, resourceType entity.ResourceType, id uuid.UUID) (*entity.RevealedResource, error) {
	if !resourceType.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", domainErrors.ErrInvalidQuery, resourceType)
	}

	resource, err := s.directory.Get(ctx, resourceType, id)
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, domainErrors.ErrResourceNotFound
	}

	revealed := s.resolver.Reveal(s.viewerAccess(ctx, identity), resource, s.now())
	return &revealed, nil
}
