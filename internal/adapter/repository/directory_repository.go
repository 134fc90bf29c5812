package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type directoryRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a read-only repository over provider profiles
func NewDirectoryRepository(db *gorm.DB, logger *zap.Logger) repository.DirectoryRepository {
	return &directoryRepository{
		db:     db,
		logger: logger,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern matches s as a literal substring; use it with likeEscape.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

const likeEscape = ` ESCAPE '\'`

func (r *directoryRepository) SearchOperators(ctx context.Context, filter repository.DirectoryFilter) ([]*entity.Resource, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Operator{}).
		Where("active = ?", true)

	if strings.TrimSpace(filter.Text) != "" {
		like := likePattern(filter.Text)
		query = query.Where("(LOWER(first_name || ' ' || last_name) LIKE ?"+likeEscape+" OR LOWER(headline) LIKE ?"+likeEscape+")", like, like)
	}
	if strings.TrimSpace(filter.Location) != "" {
		query = query.Where("LOWER(city) LIKE ?"+likeEscape, likePattern(filter.Location))
	}
	if len(filter.CategoryIDs) > 0 {
		query = query.Where("id IN (SELECT operator_id FROM operator_specializations WHERE category_id IN ?)", filter.CategoryIDs)
	}

	var rows []*model.Operator
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		r.logger.Error("Failed to search operators", zap.Error(err))
		return nil, fmt.Errorf("failed to search operators: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	categories, err := r.operatorCategories(ctx, ids)
	if err != nil {
		return nil, err
	}

	resources := make([]*entity.Resource, 0, len(rows))
	for _, row := range rows {
		resources = append(resources, operatorToResource(row, categories[row.ID]))
	}
	return resources, nil
}

func (r *directoryRepository) SearchOrganizations(ctx context.Context, filter repository.DirectoryFilter) ([]*entity.Resource, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("active = ?", true)

	if strings.TrimSpace(filter.Text) != "" {
		like := likePattern(filter.Text)
		query = query.Where("(LOWER(name) LIKE ?"+likeEscape+" OR LOWER(headline) LIKE ?"+likeEscape+")", like, like)
	}
	if strings.TrimSpace(filter.Location) != "" {
		query = query.Where("LOWER(city) LIKE ?"+likeEscape, likePattern(filter.Location))
	}
	if len(filter.CategoryIDs) > 0 {
		query = query.Where("id IN (SELECT organization_id FROM organization_specializations WHERE category_id IN ?)", filter.CategoryIDs)
	}

	var rows []*model.Organization
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		r.logger.Error("Failed to search organizations", zap.Error(err))
		return nil, fmt.Errorf("failed to search organizations: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	categories, err := r.organizationCategories(ctx, ids)
	if err != nil {
		return nil, err
	}

	resources := make([]*entity.Resource, 0, len(rows))
	for _, row := range rows {
		resources = append(resources, organizationToResource(row, categories[row.ID]))
	}
	return resources, nil
}

func (r *directoryRepository) Get(ctx context.Context, resourceType entity.ResourceType, id uuid.UUID) (*entity.Resource, error) {
	switch resourceType {
	case entity.ResourceOperator:
		var row model.Operator
		if err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&row).Error; err != nil {
			return nil, r.notFoundOrErr(err, "operator", id)
		}
		categories, err := r.operatorCategories(ctx, []uuid.UUID{id})
		if err != nil {
			return nil, err
		}
		return operatorToResource(&row, categories[id]), nil

	case entity.ResourceOrganization:
		var row model.Organization
		if err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&row).Error; err != nil {
			return nil, r.notFoundOrErr(err, "organization", id)
		}
		categories, err := r.organizationCategories(ctx, []uuid.UUID{id})
		if err != nil {
			return nil, err
		}
		return organizationToResource(&row, categories[id]), nil

	default:
		return nil, fmt.Errorf("unknown resource type %q", resourceType)
	}
}

// notFoundOrErr returns nil for a missing row so Get can report nil, nil.
func (r *directoryRepository) notFoundOrErr(err error, kind string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	r.logger.Error("Failed to get "+kind,
		zap.String("id", id.String()),
		zap.Error(err))
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

func (r *directoryRepository) operatorCategories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var links []model.OperatorSpecialization
	if err := r.db.WithContext(ctx).
		Where("operator_id IN ?", ids).
		Order("category_id ASC").
		Find(&links).Error; err != nil {
		r.logger.Error("Failed to load operator specializations", zap.Error(err))
		return nil, fmt.Errorf("failed to load operator specializations: %w", err)
	}
	for _, l := range links {
		out[l.OperatorID] = append(out[l.OperatorID], l.CategoryID)
	}
	return out, nil
}

func (r *directoryRepository) organizationCategories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var links []model.OrganizationSpecialization
	if err := r.db.WithContext(ctx).
		Where("organization_id IN ?", ids).
		Order("category_id ASC").
		Find(&links).Error; err != nil {
		r.logger.Error("Failed to load organization specializations", zap.Error(err))
		return nil, fmt.Errorf("failed to load organization specializations: %w", err)
	}
	for _, l := range links {
		out[l.OrganizationID] = append(out[l.OrganizationID], l.CategoryID)
	}
	return out, nil
}

func operatorToResource(row *model.Operator, categories []string) *entity.Resource {
	return &entity.Resource{
		ID:          row.ID,
		Type:        entity.ResourceOperator,
		Name:        row.DisplayName(),
		Headline:    row.Headline,
		Location:    row.City,
		CategoryIDs: nonNil(categories),
		Contact:     entity.Contact{Email: row.Email, Phone: row.Phone},
	}
}

func organizationToResource(row *model.Organization, categories []string) *entity.Resource {
	return &entity.Resource{
		ID:          row.ID,
		Type:        entity.ResourceOrganization,
		Name:        row.Name,
		Headline:    row.Headline,
		Location:    row.City,
		CategoryIDs: nonNil(categories),
		Contact:     entity.Contact{Email: row.Email, Phone: row.Phone, Website: row.Website},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
