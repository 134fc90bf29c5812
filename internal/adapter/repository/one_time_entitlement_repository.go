package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type oneTimeEntitlementRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOneTimeEntitlementRepository creates a new one-time entitlement repository
func NewOneTimeEntitlementRepository(db *gorm.DB, logger *zap.Logger) repository.OneTimeEntitlementRepository {
	return &oneTimeEntitlementRepository{
		db:     db,
		logger: logger,
	}
}

func oneTimeToEntity(m *model.OneTimeEntitlement) *entity.OneTimeEntitlement {
	e := &entity.OneTimeEntitlement{
		ID:         m.ID,
		IdentityID: m.IdentityID,
		CategoryID: m.CategoryID,
		Amount:     m.Amount,
		Currency:   m.Currency,
		Status:     entity.OneTimeStatus(m.Status),
		SettledAt:  m.SettledAt,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
	if m.CheckoutSessionID != nil {
		e.CheckoutSessionID = *m.CheckoutSessionID
	}
	return e
}

func (r *oneTimeEntitlementRepository) Create(ctx context.Context, e *entity.OneTimeEntitlement) error {
	row := &model.OneTimeEntitlement{
		ID:         e.ID,
		IdentityID: e.IdentityID,
		CategoryID: e.CategoryID,
		Amount:     e.Amount,
		Currency:   e.Currency,
		Status:     string(e.Status),
	}
	if e.CheckoutSessionID != "" {
		row.CheckoutSessionID = &e.CheckoutSessionID
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		r.logger.Error("Failed to create one-time entitlement",
			zap.String("attempt_id", e.ID.String()),
			zap.String("identity_id", e.IdentityID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create one-time entitlement: %w", err)
	}

	e.CreatedAt = row.CreatedAt
	return nil
}

func (r *oneTimeEntitlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.OneTimeEntitlement, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *oneTimeEntitlementRepository) GetBySessionID(ctx context.Context, sessionID string) (*entity.OneTimeEntitlement, error) {
	return r.first(ctx, "checkout_session_id = ?", sessionID)
}

func (r *oneTimeEntitlementRepository) first(ctx context.Context, query string, arg interface{}) (*entity.OneTimeEntitlement, error) {
	var row model.OneTimeEntitlement

	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get one-time entitlement", zap.Error(err))
		return nil, fmt.Errorf("failed to get one-time entitlement: %w", err)
	}

	return oneTimeToEntity(&row), nil
}

func (r *oneTimeEntitlementRepository) AttachSession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OneTimeEntitlement{}).
		Where("id = ? AND status = ? AND checkout_session_id IS NULL", id, string(entity.OneTimePending)).
		Update("checkout_session_id", sessionID)
	if result.Error != nil {
		r.logger.Error("Failed to attach checkout session",
			zap.String("attempt_id", id.String()),
			zap.String("session_id", sessionID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to attach checkout session: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *oneTimeEntitlementRepository) Settle(ctx context.Context, id uuid.UUID, status entity.OneTimeStatus, settledAt time.Time, expiresAt *time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OneTimeEntitlement{}).
		Where("id = ? AND status = ?", id, string(entity.OneTimePending)).
		Updates(map[string]interface{}{
			"status":     string(status),
			"settled_at": settledAt,
			"expires_at": expiresAt,
		})
	if result.Error != nil {
		r.logger.Error("Failed to settle one-time entitlement",
			zap.String("attempt_id", id.String()),
			zap.String("status", string(status)),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to settle one-time entitlement: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *oneTimeEntitlementRepository) ListGranting(ctx context.Context, identityID uuid.UUID, now time.Time) ([]*entity.OneTimeEntitlement, error) {
	var rows []*model.OneTimeEntitlement

	err := r.db.WithContext(ctx).
		Where("identity_id = ? AND status = ? AND expires_at >= ?", identityID, string(entity.OneTimePaid), now).
		Order("expires_at DESC").
		Find(&rows).Error
	if err != nil {
		r.logger.Error("Failed to list granting entitlements",
			zap.String("identity_id", identityID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}

	out := make([]*entity.OneTimeEntitlement, 0, len(rows))
	for _, row := range rows {
		out = append(out, oneTimeToEntity(row))
	}
	return out, nil
}

func (r *oneTimeEntitlementRepository) ListByIdentity(ctx context.Context, identityID uuid.UUID, limit, offset int) ([]*entity.Purchase, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.OneTimeEntitlement{}).
		Where("identity_id = ?", identityID).
		Count(&total).Error; err != nil {
		r.logger.Error("Failed to count purchases",
			zap.String("identity_id", identityID.String()),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	var rows []*model.OneTimeEntitlement
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		r.logger.Error("Failed to list purchases",
			zap.String("identity_id", identityID.String()),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list purchases: %w", err)
	}

	purchases := make([]*entity.Purchase, 0, len(rows))
	for _, row := range rows {
		p := &entity.Purchase{OneTimeEntitlement: *oneTimeToEntity(row)}
		if row.Category != nil {
			p.CategoryName = row.Category.Name
		}
		purchases = append(purchases, p)
	}
	return purchases, total, nil
}

func (r *oneTimeEntitlementRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.OneTimeEntitlement, error) {
	var rows []*model.OneTimeEntitlement

	query := r.db.WithContext(ctx).
		Where("status = ? AND checkout_session_id IS NOT NULL AND created_at < ?", string(entity.OneTimePending), cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&rows).Error; err != nil {
		r.logger.Error("Failed to list pending entitlements", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending entitlements: %w", err)
	}

	out := make([]*entity.OneTimeEntitlement, 0, len(rows))
	for _, row := range rows {
		out = append(out, oneTimeToEntity(row))
	}
	return out, nil
}
