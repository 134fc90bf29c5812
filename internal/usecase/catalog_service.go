package usecase

import (
	"context"

	"github.com/familu/entitlement-service/internal/domain/entity"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"go.uber.org/zap"
)

// OneTimeOffer is a category sold as a one-time unlock
type OneTimeOffer struct {
	CategoryID   string `json:"category_id"`
	Name         string `json:"name"`
	Group        string `json:"group"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	DisplayPrice string `json:"display_price"`
}

// CatalogService serves the read-only category catalog
type CatalogService struct {
	categories domainRepo.CategoryRepository
	logger     *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(categories domainRepo.CategoryRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		categories: categories,
		logger:     logger,
	}
}

// ListCategories returns every active category
func (s *CatalogService) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		return nil, err
	}
	return categories, nil
}

// ListOneTimeOffers returns the categories that can be unlocked individually
func (s *CatalogService) ListOneTimeOffers(ctx context.Context) ([]OneTimeOffer, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	offers := make([]OneTimeOffer, 0, len(categories))
	for _, c := range categories {
		if !c.HasOneTimePrice() {
			continue
		}
		offers = append(offers, OneTimeOffer{
			CategoryID:   c.ID,
			Name:         c.Name,
			Group:        c.Group,
			Amount:       *c.OneTimePrice,
			Currency:     c.Currency,
			DisplayPrice: c.DisplayPrice(),
		})
	}
	return offers, nil
}
