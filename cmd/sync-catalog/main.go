package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/familu/entitlement-service/internal/config"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/familu/entitlement-service/internal/infrastructure/cache"
	"github.com/familu/entitlement-service/internal/infrastructure/database"
	"github.com/familu/entitlement-service/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file   string
		prune  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "sync-catalog",
		Short: "Upsert care categories from a YAML seed file",
		Long: `Reads the category catalog from a YAML file and upserts it into the
database. Categories missing from the file are deactivated unless --prune=false.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), file, prune, dryRun)
		},
	}

	defaultFile := os.Getenv("CATALOG_FILE")
	if defaultFile == "" {
		defaultFile = "./configs/catalog.yaml"
	}
	cmd.Flags().StringVarP(&file, "file", "f", defaultFile, "catalog seed file")
	cmd.Flags().BoolVar(&prune, "prune", true, "deactivate categories not present in the file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}

func run(ctx context.Context, file string, prune, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return err
	}

	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return err
	}
	defer zapLogger.Sync()

	zapLogger.Info("Loading catalog from YAML", zap.String("path", file))
	categories, err := loadCatalogFromYAML(file)
	if err != nil {
		zapLogger.Error("Failed to load catalog", zap.Error(err))
		return err
	}
	if len(categories) == 0 {
		return fmt.Errorf("catalog file %s has no categories", file)
	}

	if dryRun {
		for _, c := range categories {
			zapLogger.Info("Category",
				zap.String("id", c.ID),
				zap.String("name", c.Name),
				zap.Bool("active", c.Active),
				zap.Bool("one_time", c.OneTimePriceMinor != nil))
		}
		zapLogger.Info("Dry run, nothing written", zap.Int("categories", len(categories)))
		return nil
	}

	db, err := database.NewConnection(&cfg.Database, &cfg.Log, zapLogger)
	if err != nil {
		zapLogger.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := database.Migrate(db, cfg.Database.MigrateDirectory, zapLogger); err != nil {
		zapLogger.Error("Failed to run database migrations", zap.Error(err))
		return err
	}

	repos := database.NewRepositories(db, zapLogger)

	// writing through the cache drops the entries the server reads from
	var store domainRepo.CategoryRepository = repos.Category
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, cached catalog expires on its own",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err))
		} else {
			store = cache.NewCatalogCache(repos.Category, client,
				cache.WithCacheLogger(zapLogger.Named("catalog_cache")))
		}
	}

	if err := store.Upsert(ctx, categories); err != nil {
		zapLogger.Error("Failed to upsert categories", zap.Error(err))
		return err
	}

	var deactivated int64
	if prune {
		ids := make([]string, 0, len(categories))
		for _, c := range categories {
			ids = append(ids, c.ID)
		}
		deactivated, err = store.DeactivateMissing(ctx, ids)
		if err != nil {
			zapLogger.Error("Failed to deactivate missing categories", zap.Error(err))
			return err
		}
	}

	zapLogger.Info("Catalog sync completed",
		zap.Int("categories_synced", len(categories)),
		zap.Int64("categories_deactivated", deactivated))
	return nil
}
