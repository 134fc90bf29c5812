package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/middleware/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DirectorySearcher composes redacted directory results for a viewer.
type DirectorySearcher interface {
	Search(ctx context.Context, identity entity.Identity, query entity.SearchQuery) (*entity.SearchResult, error)
	Profile(ctx context.Context, identity entity.Identity, resourceType entity.ResourceType, id uuid.UUID) (*entity.RevealedResource, error)
}

type SearchHandler struct {
	search DirectorySearcher
	logger *zap.Logger
}

func NewSearchHandler(search DirectorySearcher, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// Search handles GET /search?q=&location=&category=&type=.
// Categories may repeat or be comma separated.
func (h *SearchHandler) Search(c echo.Context) error {
	var (
		query      entity.SearchQuery
		categories []string
		kind       string
	)
	err := echo.QueryParamsBinder(c).
		String("q", &query.Text).
		String("location", &query.Location).
		Strings("category", &categories).
		String("type", &kind).
		BindError()
	if err != nil {
		return invalidArgument("Invalid search parameters", err)
	}

	query.Text = strings.TrimSpace(query.Text)
	query.Location = strings.TrimSpace(query.Location)
	query.CategoryIDs = splitCategories(categories)
	query.Type = entity.ResourceType(kind)

	identity := auth.IdentityFromContext(c)
	result, err := h.search.Search(c.Request().Context(), identity, query)
	if err != nil {
		h.logger.Warn("Search failed",
			zap.String("identity_id", identity.ID.String()),
			zap.Error(err))
		return mapError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetProfile handles GET /profiles/:type/:id.
func (h *SearchHandler) GetProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return invalidArgument("Invalid profile id", err)
	}

	profile, err := h.search.Profile(c.Request().Context(), auth.IdentityFromContext(c), entity.ResourceType(c.Param("type")), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, profile)
}

func splitCategories(values []string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, id := range strings.Split(value, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
