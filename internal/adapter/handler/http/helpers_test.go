package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	handlers "github.com/familu/entitlement-service/internal/adapter/handler/http"
	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/middleware/auth"
	"github.com/familu/entitlement-service/internal/usecase"
	apperrors "github.com/familu/entitlement-service/pkg/errors"
	"github.com/familu/entitlement-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	logger.WithEchoLogger(e, zap.NewNop())
	e.Validator = handlers.NewRequestValidator()
	return e
}

func requireAuth() echo.MiddlewareFunc {
	return auth.JWTMiddleware(auth.JWTConfig{Secret: testSecret, Logger: zap.NewNop()})
}

func optionalAuth() echo.MiddlewareFunc {
	return auth.JWTMiddleware(auth.JWTConfig{Secret: testSecret, Logger: zap.NewNop(), Optional: true})
}

func signToken(t *testing.T, identity entity.Identity) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   identity.ID.String(),
		"email": identity.Email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newIdentity() entity.Identity {
	return entity.Identity{ID: uuid.New(), Email: "carer@example.com"}
}

type request struct {
	method  string
	path    string
	body    string
	token   string
	headers map[string]string
}

func serve(e *echo.Echo, r request) *httptest.ResponseRecorder {
	req := httptest.NewRequest(r.method, r.path, strings.NewReader(r.body))
	if r.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if r.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorBody {
	t.Helper()
	var body apperrors.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sameIdentity(want entity.Identity) interface{} {
	return mock.MatchedBy(func(got entity.Identity) bool { return got.ID == want.ID })
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Category), args.Error(1)
}

func (m *MockCatalog) ListOneTimeOffers(ctx context.Context) ([]usecase.OneTimeOffer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.OneTimeOffer), args.Error(1)
}

type MockSearcher struct{ mock.Mock }

func (m *MockSearcher) Search(ctx context.Context, identity entity.Identity, query entity.SearchQuery) (*entity.SearchResult, error) {
	args := m.Called(ctx, identity, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SearchResult), args.Error(1)
}

func (m *MockSearcher) Profile(ctx context.Context, identity entity.Identity, resourceType entity.ResourceType, id uuid.UUID) (*entity.RevealedResource, error) {
	args := m.Called(ctx, identity, resourceType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RevealedResource), args.Error(1)
}

type MockAccount struct{ mock.Mock }

func (m *MockAccount) CurrentAccess(ctx context.Context, identity entity.Identity) (entity.Access, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(entity.Access), args.Error(1)
}

func (m *MockAccount) ListOneTime(ctx context.Context, identity entity.Identity, params entity.PaginationParams) (*entity.PaginatedPurchasesResponse, error) {
	args := m.Called(ctx, identity, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaginatedPurchasesResponse), args.Error(1)
}

type MockCheckout struct{ mock.Mock }

func (m *MockCheckout) StartCheckout(ctx context.Context, identity entity.Identity, product entity.Product) (*entity.CheckoutResult, error) {
	args := m.Called(ctx, identity, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CheckoutResult), args.Error(1)
}

func (m *MockCheckout) CreatePortalSession(ctx context.Context, identity entity.Identity) (string, error) {
	args := m.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

type MockReconciler struct{ mock.Mock }

func (m *MockReconciler) ReconcileSession(ctx context.Context, identity entity.Identity, sessionRef string) (*usecase.ReconcileResult, error) {
	args := m.Called(ctx, identity, sessionRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ReconcileResult), args.Error(1)
}

type MockWebhook struct{ mock.Mock }

func (m *MockWebhook) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}
