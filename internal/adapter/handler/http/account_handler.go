package http

import (
	"context"
	"net/http"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/middleware/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AccountReader exposes what an identity holds.
type AccountReader interface {
	CurrentAccess(ctx context.Context, identity entity.Identity) (entity.Access, error)
	ListOneTime(ctx context.Context, identity entity.Identity, params entity.PaginationParams) (*entity.PaginatedPurchasesResponse, error)
}

type AccountHandler struct {
	ledger AccountReader
	logger *zap.Logger
}

func NewAccountHandler(ledger AccountReader, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{ledger: ledger, logger: logger}
}

// GetAccess returns the caller's current subscription tier and unlocked categories.
func (h *AccountHandler) GetAccess(c echo.Context) error {
	identity := auth.IdentityFromContext(c)

	access, err := h.ledger.CurrentAccess(c.Request().Context(), identity)
	if err != nil {
		h.logger.Error("Failed to get access",
			zap.String("identity_id", identity.ID.String()),
			zap.Error(err))
		return mapError(err)
	}

	return c.JSON(http.StatusOK, access)
}

// GetPurchases returns the caller's one-time purchases, newest first.
func (h *AccountHandler) GetPurchases(c echo.Context) error {
	identity := auth.IdentityFromContext(c)

	var params entity.PaginationParams
	err := echo.QueryParamsBinder(c).
		Int("page", &params.Page).
		Int("limit", &params.Limit).
		BindError()
	if err != nil {
		h.logger.Warn("Invalid pagination parameters",
			zap.String("identity_id", identity.ID.String()),
			zap.Error(err))
		return invalidArgument("Invalid pagination parameters", err)
	}

	purchases, err := h.ledger.ListOneTime(c.Request().Context(), identity, params)
	if err != nil {
		return mapError(err)
	}

	h.logger.Debug("Retrieved purchases",
		zap.String("identity_id", identity.ID.String()),
		zap.Int("count", len(purchases.Data)),
		zap.Int64("total", purchases.Pagination.Total))

	return c.JSON(http.StatusOK, purchases)
}
