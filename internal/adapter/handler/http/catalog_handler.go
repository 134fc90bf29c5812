package http

import (
	"context"
	"net/http"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CatalogReader lists what can be browsed and bought.
type CatalogReader interface {
	ListCategories(ctx context.Context) ([]*entity.Category, error)
	ListOneTimeOffers(ctx context.Context) ([]usecase.OneTimeOffer, error)
}

type CatalogHandler struct {
	catalog CatalogReader
	logger  *zap.Logger
}

func NewCatalogHandler(catalog CatalogReader, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// GetCategories returns every active category.
func (h *CatalogHandler) GetCategories(c echo.Context) error {
	categories, err := h.catalog.ListCategories(c.Request().Context())
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetOneTimeOffers returns the categories sold as one-time unlocks.
func (h *CatalogHandler) GetOneTimeOffers(c echo.Context) error {
	offers, err := h.catalog.ListOneTimeOffers(c.Request().Context())
	if err != nil {
		return mapError(err)
	}

	h.logger.Debug("Listed one-time offers", zap.Int("count", len(offers)))

	return c.JSON(http.StatusOK, echo.Map{
		"offers": offers,
		"count":  len(offers),
	})
}
