package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/familu/entitlement-service/internal/config"
	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/provider"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/familu/entitlement-service/internal/infrastructure/cache"
	"github.com/familu/entitlement-service/internal/infrastructure/database"
	grpcServer "github.com/familu/entitlement-service/internal/infrastructure/grpc"
	httpServer "github.com/familu/entitlement-service/internal/infrastructure/http"
	providerFactory "github.com/familu/entitlement-service/internal/infrastructure/provider"
	"github.com/familu/entitlement-service/internal/usecase"
	"github.com/familu/entitlement-service/pkg/logger"
	"github.com/familu/entitlement-service/pkg/messaging"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger = zapLogger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("environment", cfg.Service.Environment),
		zap.String("version", cfg.Service.Version),
	)

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, &cfg.Log, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, cfg.Database.MigrateDirectory, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)

	// Redis is optional: catalog cache and change notifications
	var (
		categories domainRepo.CategoryRepository = repos.Category
		publisher  messaging.Publisher
	)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			zapLogger.Warn("Redis unavailable, running without cache and notifications",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err))
			_ = client.Close()
		} else {
			defer client.Close()
			categories = cache.NewCatalogCache(repos.Category, client,
				cache.WithTTL(cfg.Redis.CatalogTTL),
				cache.WithCacheLogger(zapLogger.Named("catalog_cache")))
			publisher = messaging.NewRedisPublisher(client)
			zapLogger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	paymentProvider, err := providerFactory.NewFactory(cfg, zapLogger).GetProvider(provider.ProviderTypeStripe)
	if err != nil {
		zapLogger.Fatal("Failed to initialize payment provider", zap.Error(err))
	}

	oneTimeLevel, err := config.ParseLevel(cfg.Entitlement.OneTimeLevel)
	if err != nil {
		zapLogger.Fatal("Invalid one-time visibility level", zap.Error(err))
	}
	tierPrices := tierPriceMap(cfg.Stripe.TierPrices, zapLogger)

	// Use cases
	ledger := usecase.NewLedgerService(categories, repos.OneTime, repos.Subscription,
		cfg.Entitlement.AccessWindow, zapLogger.Named("ledger"))
	resolver := usecase.NewEntitlementResolver(oneTimeLevel)
	catalog := usecase.NewCatalogService(categories, zapLogger.Named("catalog"))
	search := usecase.NewSearchService(repos.Directory, ledger, resolver,
		cfg.Entitlement.PreviewLimit, zapLogger.Named("search"))
	checkout := usecase.NewCheckoutService(categories, repos.CustomerMapping, ledger, paymentProvider,
		usecase.CheckoutConfig{
			ClientURL:        cfg.Service.ClientURL,
			SuccessPath:      cfg.Stripe.SuccessPath,
			CancelPath:       cfg.Stripe.CancelPath,
			PortalReturnPath: cfg.Stripe.PortalReturnPath,
			TierPrices:       tierPrices,
			Currency:         cfg.Stripe.Currency,
			Timeout:          cfg.Entitlement.CheckoutTimeout,
		}, zapLogger.Named("checkout"))
	settlement := usecase.NewSettlementService(ledger, repos.CustomerMapping, repos.Webhook, paymentProvider,
		publisher, cfg.Redis.Channel, tierPrices, zapLogger.Named("settlement"))

	sweeper := usecase.NewPendingSweeper(ledger, settlement, usecase.PendingSweeperConfig{
		Interval: cfg.Entitlement.SweeperInterval,
		Grace:    cfg.Entitlement.SweeperGrace,
	}, zapLogger.Named("sweeper"))

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sweeper.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start pending sweeper", zap.Error(err))
	}

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Services{
		Catalog:    catalog,
		Search:     search,
		Account:    ledger,
		Checkout:   checkout,
		Reconciler: settlement,
		Webhook:    settlement,
	})

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := sweeper.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Failed to stop pending sweeper", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}

// tierPriceMap keeps the configured prices whose key names a paid tier.
func tierPriceMap(prices map[string]string, log *zap.Logger) map[entity.Tier]string {
	out := make(map[entity.Tier]string, len(prices))
	for name, priceID := range prices {
		tier, err := entity.ParseTier(name)
		if err != nil || tier == entity.TierFree || priceID == "" {
			log.Warn("Ignoring tier price", zap.String("tier", name), zap.String("price_id", priceID))
			continue
		}
		out[tier] = priceID
	}
	return out
}
