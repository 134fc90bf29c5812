package repository

import (
	"testing"
	"time"

	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	return db
}

func int64Ptr(v int64) *int64 { return &v }

func seedCategories(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create([]*model.Category{
		{ID: "physio", Name: "Fisioterapia", GroupTag: "health", OneTimePriceMinor: int64Ptr(1990), Currency: "eur", Active: true, SortOrder: 2},
		{ID: "elder", Name: "Assistenza anziani", GroupTag: "care", RecurringAvailable: true, Currency: "eur", Active: true, SortOrder: 1},
		{ID: "old", Name: "Retired", GroupTag: "care", Currency: "eur", Active: false},
	}).Error)
}
