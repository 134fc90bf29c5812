package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	domainErrors "github.com/familu/entitlement-service/internal/domain/errors"
	"github.com/familu/entitlement-service/internal/domain/provider"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const checkoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// CheckoutConfig holds redirect targets and the price table for checkouts
type CheckoutConfig struct {
	ClientURL        string
	SuccessPath      string
	CancelPath       string
	PortalReturnPath string
	// TierPrices maps paid tiers to processor price ids.
	TierPrices map[entity.Tier]string
	Currency   string
	Timeout    time.Duration
}

// CheckoutService starts checkouts. It never grants access; settlement does.
type CheckoutService struct {
	categories domainRepo.CategoryRepository
	mappings   domainRepo.CustomerMappingRepository
	ledger     *LedgerService
	provider   provider.PaymentProvider
	config     CheckoutConfig
	logger     *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	categories domainRepo.CategoryRepository,
	mappings domainRepo.CustomerMappingRepository,
	ledger *LedgerService,
	paymentProvider provider.PaymentProvider,
	config CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &CheckoutService{
		categories: categories,
		mappings:   mappings,
		ledger:     ledger,
		provider:   paymentProvider,
		config:     config,
		logger:     logger,
	}
}

// StartCheckout opens a hosted checkout for product and returns the redirect URL
func (s *CheckoutService) StartCheckout(ctx context.Context, identity entity.Identity, product entity.Product) (*entity.CheckoutResult, error) {
	if identity.IsAnonymous() {
		return nil, domainErrors.ErrNotAuthenticated
	}
	// customers are matched by email, so checkout needs a verified one
	if strings.TrimSpace(identity.Email) == "" {
		return nil, fmt.Errorf("%w: email not available", domainErrors.ErrNotAuthenticated)
	}

	req, category, err := s.buildRequest(ctx, product)
	if err != nil {
		return nil, err
	}

	if product.Kind == entity.ProductSubscription {
		subscribed, err := s.ledger.HasActiveSubscription(ctx, identity)
		if err != nil {
			return nil, err
		}
		if subscribed {
			return nil, domainErrors.ErrSubscriptionExists
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	customerID, err := s.provider.FindOrCreateCustomer(ctx, &provider.CustomerRequest{
		IdentityID: identity.ID.String(),
		Email:      identity.Email,
	})
	if err != nil {
		s.logger.Error("Failed to resolve processor customer",
			zap.String("identity_id", identity.ID.String()),
			zap.Error(err))
		return nil, processorFailure(err)
	}
	s.rememberCustomer(ctx, identity, customerID)
	req.CustomerID = customerID

	req.Metadata = map[string]string{
		entity.MetadataIdentityID: identity.ID.String(),
		entity.MetadataKind:       string(product.Kind),
	}

	var attemptID uuid.UUID
	var attemptRef string
	if product.Kind == entity.ProductOneTime {
		attemptID, err = s.ledger.CreatePendingOneTime(ctx, identity, category.ID, *category.OneTimePrice)
		if err != nil {
			return nil, err
		}
		attemptRef = attemptID.String()
		req.ClientRef = attemptRef
		req.Metadata[entity.MetadataAttemptID] = attemptRef
		req.Metadata[entity.MetadataCategoryID] = category.ID
	} else {
		req.ClientRef = identity.ID.String()
		req.Metadata[entity.MetadataTier] = string(product.Tier)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		// a pending row without a session never grants
		s.logger.Error("Failed to create checkout session",
			zap.String("identity_id", identity.ID.String()),
			zap.String("product", product.String()),
			zap.String("attempt_id", attemptRef),
			zap.Error(err))
		return nil, processorFailure(err)
	}

	if attemptRef != "" {
		if err := s.ledger.AttachCheckoutSession(ctx, attemptID, session.ID); err != nil {
			s.logger.Error("Failed to attach checkout session",
				zap.String("attempt_id", attemptRef),
				zap.String("session_id", session.ID),
				zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("Checkout session created",
		zap.String("identity_id", identity.ID.String()),
		zap.String("product", product.String()),
		zap.String("session_id", session.ID))

	return &entity.CheckoutResult{
		URL:        session.URL,
		SessionID:  session.ID,
		AttemptRef: attemptRef,
	}, nil
}

// buildRequest validates product and fills the line item and redirect targets
func (s *CheckoutService) buildRequest(ctx context.Context, product entity.Product) (*provider.CheckoutSessionRequest, *entity.Category, error) {
	switch product.Kind {
	case entity.ProductSubscription:
		priceID, ok := s.config.TierPrices[product.Tier]
		if !ok || priceID == "" || product.Tier == entity.TierFree {
			return nil, nil, fmt.Errorf("%w: tier %q is not sold", domainErrors.ErrInvalidProduct, product.Tier)
		}
		query := url.Values{}
		query.Set("type", "subscription")
		query.Set("tier", string(product.Tier))
		return &provider.CheckoutSessionRequest{
			Mode:       entity.SessionModeSubscription,
			PriceID:    priceID,
			SuccessURL: s.successURL(query),
			CancelURL:  s.clientURL(s.config.CancelPath),
		}, nil, nil

	case entity.ProductOneTime:
		if product.CategoryID == "" {
			return nil, nil, domainErrors.ErrInvalidCategory
		}
		category, err := s.categories.GetByID(ctx, product.CategoryID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil || !category.HasOneTimePrice() {
			return nil, nil, domainErrors.ErrInvalidCategory
		}
		currency := category.Currency
		if currency == "" {
			currency = s.config.Currency
		}
		query := url.Values{}
		query.Set("type", "one-time")
		query.Set("category", category.ID)
		return &provider.CheckoutSessionRequest{
			Mode:        entity.SessionModePayment,
			ProductName: "Premium access - " + category.Name,
			Amount:      *category.OneTimePrice,
			Currency:    currency,
			SuccessURL:  s.successURL(query),
			CancelURL:   s.clientURL(s.config.CancelPath),
		}, category, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown kind %q", domainErrors.ErrInvalidProduct, product.Kind)
	}
}

// successURL appends the processor's session placeholder unescaped
func (s *CheckoutService) successURL(query url.Values) string {
	return s.clientURL(s.config.SuccessPath) + "?" + query.Encode() + "&session_id=" + checkoutSessionPlaceholder
}

func (s *CheckoutService) clientURL(path string) string {
	return strings.TrimRight(s.config.ClientURL, "/") + path
}

// rememberCustomer stores the identity to customer mapping. Failures only cost
// the subscription fallback lookup, so they are logged and not returned.
func (s *CheckoutService) rememberCustomer(ctx context.Context, identity entity.Identity, customerID string) {
	err := s.mappings.Upsert(ctx, &entity.CustomerMapping{
		Provider:           s.provider.GetProviderName(),
		ProviderCustomerID: customerID,
		IdentityID:         identity.ID,
		Email:              identity.Email,
	})
	if err != nil {
		s.logger.Warn("Failed to store customer mapping",
			zap.String("identity_id", identity.ID.String()),
			zap.String("customer_id", customerID),
			zap.Error(err))
	}
}

// CreatePortalSession opens the billing portal for the identity's processor customer
func (s *CheckoutService) CreatePortalSession(ctx context.Context, identity entity.Identity) (string, error) {
	if identity.IsAnonymous() {
		return "", domainErrors.ErrNotAuthenticated
	}

	mapping, err := s.mappings.GetByIdentityID(ctx, identity.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load customer mapping: %w", err)
	}
	if mapping == nil {
		return "", domainErrors.ErrNoCustomerMapping
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	portalURL, err := s.provider.CreatePortalSession(ctx, mapping.ProviderCustomerID, s.clientURL(s.config.PortalReturnPath))
	if err != nil {
		var providerErr *provider.ProviderError
		if errors.As(err, &providerErr) {
			s.logger.Error("Failed to create portal session",
				zap.String("identity_id", identity.ID.String()),
				zap.String("code", providerErr.Code),
				zap.Error(err))
		}
		return "", processorFailure(err)
	}
	return portalURL, nil
}

// processorFailure keeps transient processor errors retryable and reports
// permanent rejections, such as an unknown price or session, as such.
func processorFailure(err error) error {
	var providerErr *provider.ProviderError
	if errors.As(err, &providerErr) && !providerErr.Temporary {
		return fmt.Errorf("%w: %w", domainErrors.ErrProcessorRejected, err)
	}
	return fmt.Errorf("%w: %w", domainErrors.ErrCheckoutUnavailable, err)
}
