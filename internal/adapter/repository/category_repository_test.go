package repository

import (
	"context"
	"testing"

	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCategoryRepository_ListAndGet(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db)
	repo := NewCategoryRepository(db, zap.NewNop())
	ctx := context.Background()

	categories, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "elder", categories[0].ID)
	assert.Equal(t, "physio", categories[1].ID)
	assert.Equal(t, int64(1990), *categories[1].OneTimePrice)
	assert.Equal(t, "19.90", categories[1].DisplayPrice())

	got, err := repo.GetByID(ctx, "physio")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.HasOneTimePrice())

	inactive, err := repo.GetByID(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, inactive)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCategoryRepository_UpsertAndDeactivate(t *testing.T) {
	db := newTestDB(t)
	seedCategories(t, db)
	repo := NewCategoryRepository(db, zap.NewNop())
	ctx := context.Background()

	err := repo.Upsert(ctx, []*model.Category{
		{ID: "physio", Name: "Physiotherapy", GroupTag: "health", OneTimePriceMinor: int64Ptr(2490), Currency: "eur", Active: true},
		{ID: "nursing", Name: "Nursing", GroupTag: "health", Currency: "eur", Active: true, SortOrder: 3},
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "physio")
	require.NoError(t, err)
	assert.Equal(t, "Physiotherapy", got.Name)
	assert.Equal(t, int64(2490), *got.OneTimePrice)

	n, err := repo.DeactivateMissing(ctx, []string{"physio", "nursing"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	categories, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}
