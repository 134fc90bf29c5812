package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MaxWebhookBodyBytes bounds the notification payload read into memory.
const MaxWebhookBodyBytes = int64(65536)

// WebhookProcessor verifies and applies a processor notification.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type WebhookHandler struct {
	settlement WebhookProcessor
	logger     *zap.Logger
}

func NewWebhookHandler(settlement WebhookProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{settlement: settlement, logger: logger}
}

// HandleWebhook acknowledges a notification once it is applied, recognised as a
// duplicate, or dropped as unknown. Any other failure is returned so the
// processor redelivers.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return invalidArgument("Error reading request body", err)
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if err := h.settlement.HandleWebhook(c.Request().Context(), body, signature); err != nil {
		h.logger.Warn("Webhook not applied",
			zap.Int("payload_bytes", len(body)),
			zap.Error(err))
		return mapError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
