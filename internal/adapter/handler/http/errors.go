package http

import (
	"errors"

	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	apperrors "github.com/familu/entitlement-service/pkg/errors"
)

// mapError translates domain errors into application errors rendered by the
// Echo error handler. Unknown errors become INTERNAL without leaking details.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, domainErrors.ErrNotAuthenticated):
		return apperrors.NewAppError(apperrors.ErrUnauthenticated, "Authentication required", err)
	case errors.Is(err, domainErrors.ErrSessionNotOwned):
		return apperrors.NewAppError(apperrors.ErrUnauthorized, "Checkout session belongs to another account", err)
	case errors.Is(err, domainErrors.ErrInvalidCategory):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Category is not available for purchase", err)
	case errors.Is(err, domainErrors.ErrInvalidProduct):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Invalid product", err)
	case errors.Is(err, domainErrors.ErrInvalidQuery):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Invalid query", err)
	case errors.Is(err, domainErrors.ErrInvalidSignature):
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Invalid webhook signature", err)
	case errors.Is(err, domainErrors.ErrCheckoutUnavailable):
		return apperrors.NewRetryableError(apperrors.ErrUnavailable, "Checkout is temporarily unavailable, please retry", err)
	case errors.Is(err, domainErrors.ErrProcessorRejected):
		return apperrors.NewAppError(apperrors.ErrBadGateway, "Payment processor rejected the request", err)
	case errors.Is(err, domainErrors.ErrSubscriptionExists):
		return apperrors.NewAppError(apperrors.ErrConflict, "An active subscription exists, change plans in the billing portal", err)
	case errors.Is(err, domainErrors.ErrConflictingSettlement):
		return apperrors.NewAppError(apperrors.ErrConflict, "Settlement conflicts with a recorded outcome", err)
	case errors.Is(err, domainErrors.ErrResourceNotFound):
		return apperrors.NewAppError(apperrors.ErrNotFound, "Profile not found", err)
	case errors.Is(err, domainErrors.ErrNoCustomerMapping):
		return apperrors.NewAppError(apperrors.ErrNotFound, "No billing account for this identity", err)
	case errors.Is(err, domainErrors.ErrUnknownSettlement):
		return apperrors.NewAppError(apperrors.ErrNotFound, "Unknown checkout session", err)
	default:
		return apperrors.NewAppError(apperrors.ErrInternal, "Internal server error", err)
	}
}

func invalidArgument(message string, err error) error {
	return apperrors.NewAppError(apperrors.ErrInvalidArgument, message, err)
}
