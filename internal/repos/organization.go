package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type OrganizationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, orgs []*types.Organization) ([]*types.Organization, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID) ([]*types.Organization, error)
	GetByIDAny(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Organization, error)
	List(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.Organization, error)
	CountByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, fields map[string]interface{}) (int64, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (int64, error)
	Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	repoLog := baseLog.With("repo", "OrganizationRepo")
	return &organizationRepo{db: db, log: repoLog}
}

func (or *organizationRepo) Create(ctx context.Context, tx *gorm.DB, orgs []*types.Organization) ([]*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	if len(orgs) == 0 {
		return []*types.Organization{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (or *organizationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID) ([]*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	var results []*types.Organization
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByIDAny resolves an organization without a workspace filter. It backs
// cross-workspace handoff routing and must never leak into tenant reads.
func (or *organizationRepo) GetByIDAny(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	var result types.Organization
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (or *organizationRepo) List(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	var results []*types.Organization
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// CountByIDs is the single existence check behind project creation: every
// referenced org must resolve inside the caller's workspace.
func (or *organizationRepo) CountByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Organization{}).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (or *organizationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Organization{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (or *organizationRepo) SoftDelete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	res := transaction.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Delete(&types.Organization{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (or *organizationRepo) Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Organization{}).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
