package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/familu/entitlement-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type categoryRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new catalog repository
func NewCategoryRepository(db *gorm.DB, logger *zap.Logger) repository.CategoryRepository {
	return &categoryRepository{
		db:     db,
		logger: logger,
	}
}

func categoryToEntity(m *model.Category) *entity.Category {
	return &entity.Category{
		ID:                 m.ID,
		Name:               m.Name,
		Group:              m.GroupTag,
		Description:        m.Description,
		RecurringAvailable: m.RecurringAvailable,
		OneTimePrice:       m.OneTimePriceMinor,
		Currency:           m.Currency,
	}
}

// List retrieves all active categories in display order
func (r *categoryRepository) List(ctx context.Context) ([]*entity.Category, error) {
	var rows []*model.Category

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&rows).Error
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]*entity.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, categoryToEntity(row))
	}
	return categories, nil
}

// GetByID retrieves an active category
func (r *categoryRepository) GetByID(ctx context.Context, id string) (*entity.Category, error) {
	var row model.Category

	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get category",
			zap.String("category_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return categoryToEntity(&row), nil
}

// Upsert inserts or updates categories keyed by id
func (r *categoryRepository) Upsert(ctx context.Context, categories []*model.Category) error {
	if len(categories) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&categories).Error
	if err != nil {
		r.logger.Error("Failed to upsert categories",
			zap.Int("count", len(categories)),
			zap.Error(err))
		return fmt.Errorf("failed to upsert categories: %w", err)
	}

	return nil
}

// DeactivateMissing marks every category not in keepIDs inactive
func (r *categoryRepository) DeactivateMissing(ctx context.Context, keepIDs []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Category{}).
		Where("active = ?", true)
	if len(keepIDs) > 0 {
		query = query.Where("id NOT IN ?", keepIDs)
	}

	result := query.Update("active", false)
	if result.Error != nil {
		r.logger.Error("Failed to deactivate categories", zap.Error(result.Error))
		return 0, fmt.Errorf("failed to deactivate categories: %w", result.Error)
	}

	return result.RowsAffected, nil
}
