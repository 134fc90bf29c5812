package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/familu/entitlement-service/internal/adapter/repository"
	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/familu/entitlement-service/internal/domain/provider"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/familu/entitlement-service/internal/usecase"
)

// MockPublisher records published change notifications
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

// MockPaymentProvider is a mock implementation of PaymentProvider
type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) FindOrCreateCustomer(ctx context.Context, req *provider.CustomerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutSessionRequest) (*entity.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CheckoutSession), args.Error(1)
}

func (m *MockPaymentProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*entity.CheckoutSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CheckoutSession), args.Error(1)
}

func (m *MockPaymentProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) ParseWebhook(payload []byte, signature string) (*entity.ProcessorEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProcessorEvent), args.Error(1)
}

func (m *MockPaymentProvider) DecodeEvent(payload []byte) (*entity.ProcessorEvent, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProcessorEvent), args.Error(1)
}

func (m *MockPaymentProvider) GetProviderName() string {
	return "stripe"
}

// testClock is a settable clock shared by the services under test
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Set(t time.Time) { c.now = t.UTC() }

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	require.NoError(t, db.AutoMigrate(model.Directory()...))

	require.NoError(t, db.Create([]*model.Category{
		{ID: "physio", Name: "Fisioterapia", GroupTag: "health", OneTimePriceMinor: int64Ptr(1990), Currency: "eur", Active: true, SortOrder: 1},
		{ID: "elder", Name: "Assistenza anziani", GroupTag: "care", RecurringAvailable: true, OneTimePriceMinor: int64Ptr(2490), Currency: "eur", Active: true, SortOrder: 2},
		{ID: "nursing", Name: "Infermieristica", GroupTag: "health", RecurringAvailable: true, Currency: "eur", Active: true, SortOrder: 3},
	}).Error)
	return db
}

// addOperator inserts an active operator specialised in categories
func addOperator(t *testing.T, db *gorm.DB, first, last, headline string, categories ...string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&model.Operator{
		ID: id, FirstName: first, LastName: last, Headline: headline, City: "Milano",
		Email: fmt.Sprintf("%s@example.com", id.String()[:8]), Phone: "+39 02 0000", Active: true,
	}).Error)
	for _, c := range categories {
		require.NoError(t, db.Create(&model.OperatorSpecialization{OperatorID: id, CategoryID: c}).Error)
	}
	return id
}

// addOrganization inserts an active organization specialised in categories
func addOrganization(t *testing.T, db *gorm.DB, name, headline string, categories ...string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&model.Organization{
		ID: id, Name: name, Headline: headline, City: "Milano", Website: "https://example.com", Active: true,
	}).Error)
	for _, c := range categories {
		require.NoError(t, db.Create(&model.OrganizationSpecialization{OrganizationID: id, CategoryID: c}).Error)
	}
	return id
}

type fixture struct {
	db         *gorm.DB
	clock      *testClock
	provider   *MockPaymentProvider
	oneTime    domainRepo.OneTimeEntitlementRepository
	mappings   domainRepo.CustomerMappingRepository
	webhooks   repository.WebhookRepository
	ledger     *usecase.LedgerService
	checkout   *usecase.CheckoutService
	settlement *usecase.SettlementService
	resolver   *usecase.EntitlementResolver
	search     *usecase.SearchService
}

var tierPrices = map[entity.Tier]string{
	entity.TierStandard: "price_standard",
	entity.TierPremium:  "price_premium",
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	db := newTestDB(t)
	clock := &testClock{now: baseTime}
	mockProvider := new(MockPaymentProvider)

	categories := repository.NewCategoryRepository(db, log)
	oneTime := repository.NewOneTimeEntitlementRepository(db, log)
	subscriptions := repository.NewSubscriptionEntitlementRepository(db, log)
	mappings := repository.NewCustomerMappingRepository(db, log)
	webhooks := repository.NewWebhookRepository(db, log)

	ledger := usecase.NewLedgerService(categories, oneTime, subscriptions, usecase.DefaultAccessWindow, log).WithClock(clock.Now)
	checkout := usecase.NewCheckoutService(categories, mappings, ledger, mockProvider, usecase.CheckoutConfig{
		ClientURL:        "https://familu.example.com/",
		SuccessPath:      "/payment-success",
		CancelPath:       "/pricing",
		PortalReturnPath: "/account",
		TierPrices:       tierPrices,
		Currency:         "eur",
		Timeout:          time.Second,
	}, log)
	settlement := usecase.NewSettlementService(ledger, mappings, webhooks, mockProvider, nil, "", tierPrices, log).WithClock(clock.Now)
	resolver := usecase.NewEntitlementResolver(entity.FullyRevealed)
	search := usecase.NewSearchService(repository.NewDirectoryRepository(db, log), ledger, resolver, usecase.DefaultPreviewLimit, log).WithClock(clock.Now)

	return &fixture{
		db:         db,
		clock:      clock,
		provider:   mockProvider,
		oneTime:    oneTime,
		mappings:   mappings,
		webhooks:   webhooks,
		ledger:     ledger,
		checkout:   checkout,
		settlement: settlement,
		resolver:   resolver,
		search:     search,
	}
}

func newIdentity() entity.Identity {
	id := uuid.New()
	return entity.Identity{ID: id, Email: id.String()[:8] + "@example.com"}
}

// pendingAttempt creates a pending physio attempt bound to sessionID
func (f *fixture) pendingAttempt(t *testing.T, identity entity.Identity, sessionID string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	ref, err := f.ledger.CreatePendingOneTime(ctx, identity, "physio", 1990)
	require.NoError(t, err)
	if sessionID != "" {
		require.NoError(t, f.ledger.AttachCheckoutSession(ctx, ref, sessionID))
	}
	return ref
}

// sessionEvent builds a verified checkout event for attempt
func sessionEvent(eventID string, eventType entity.ProcessorEventType, identity entity.Identity, attempt uuid.UUID, sessionID, paymentStatus string, created time.Time) *entity.ProcessorEvent {
	return &entity.ProcessorEvent{
		ID:      eventID,
		Type:    eventType,
		Created: created,
		Payload: []byte(fmt.Sprintf(`{"id":%q,"type":%q}`, eventID, eventType)),
		Session: &entity.CheckoutSession{
			ID:                sessionID,
			Mode:              entity.SessionModePayment,
			Status:            "complete",
			PaymentStatus:     paymentStatus,
			ClientReferenceID: attempt.String(),
			CustomerID:        "cus_1",
			Metadata: map[string]string{
				entity.MetadataIdentityID: identity.ID.String(),
				entity.MetadataAttemptID:  attempt.String(),
				entity.MetadataCategoryID: "physio",
				entity.MetadataKind:       string(entity.ProductOneTime),
			},
		},
	}
}
