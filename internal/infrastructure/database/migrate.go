package database

import (
	"github.com/familu/entitlement-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations. The directory tables belong to profile
// management and are only created when withDirectory is set.
func Migrate(db *gorm.DB, withDirectory bool, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.AutoMigrate(model.All()...); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if withDirectory {
		logger.Info("Migrating directory tables")
		if err := db.AutoMigrate(model.Directory()...); err != nil {
			logger.Error("Failed to migrate directory tables", zap.Error(err))
			return err
		}
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes that gorm tags cannot express
func createCustomIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON stripe_webhook_events (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_one_time_pending_session ON one_time_entitlements (created_at) WHERE status = 'pending' AND checkout_session_id IS NOT NULL`).Error; err != nil {
		return err
	}

	return nil
}
