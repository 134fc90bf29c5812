package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/middleware/auth"
	"github.com/familu/entitlement-service/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CheckoutStarter opens hosted checkout and billing portal sessions.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, identity entity.Identity, product entity.Product) (*entity.CheckoutResult, error)
	CreatePortalSession(ctx context.Context, identity entity.Identity) (string, error)
}

// SessionReconciler settles a checkout session by polling the processor.
type SessionReconciler interface {
	ReconcileSession(ctx context.Context, identity entity.Identity, sessionRef string) (*usecase.ReconcileResult, error)
}

type CheckoutHandler struct {
	checkout   CheckoutStarter
	reconciler SessionReconciler
	logger     *zap.Logger
}

func NewCheckoutHandler(checkout CheckoutStarter, reconciler SessionReconciler, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:   checkout,
		reconciler: reconciler,
		logger:     logger,
	}
}

type CreateCheckoutRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=subscription one_time"`
	Tier       string `json:"tier,omitempty" validate:"omitempty,oneof=standard premium"`
	CategoryID string `json:"category_id,omitempty" validate:"omitempty,max=64"`
}

type CreateCheckoutResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
	AttemptRef  string `json:"attempt_ref,omitempty"`
}

// CreateCheckout handles POST /checkout for both subscriptions and one-time unlocks.
func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	identity := auth.IdentityFromContext(c)

	var req CreateCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return invalidArgument("Invalid request body", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product := entity.Product{
		Kind:       entity.ProductKind(req.Kind),
		Tier:       entity.Tier(req.Tier),
		CategoryID: strings.TrimSpace(req.CategoryID),
	}

	h.logger.Info("Creating checkout session",
		zap.String("identity_id", identity.ID.String()),
		zap.Stringer("product", product))

	result, err := h.checkout.StartCheckout(c.Request().Context(), identity, product)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, CreateCheckoutResponse{
		ID:          result.SessionID,
		URL:         result.URL,
		Status:      "pending",
		CheckoutURL: result.URL,
		AttemptRef:  result.AttemptRef,
	})
}

// CheckSessionStatus reconciles a session the client returned from, for when
// the webhook has not arrived yet.
func (h *CheckoutHandler) CheckSessionStatus(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return invalidArgument("Session ID is required", nil)
	}

	result, err := h.reconciler.ReconcileSession(c.Request().Context(), auth.IdentityFromContext(c), sessionID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// CreatePortalSession returns a billing portal link for managing the subscription.
func (h *CheckoutHandler) CreatePortalSession(c echo.Context) error {
	identity := auth.IdentityFromContext(c)

	url, err := h.checkout.CreatePortalSession(c.Request().Context(), identity)
	if err != nil {
		return mapError(err)
	}

	h.logger.Info("Created billing portal session", zap.String("identity_id", identity.ID.String()))

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}
