package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type SampleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, samples []*types.Sample) ([]*types.Sample, error)
	GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.Sample, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID) ([]*types.Sample, error)
	ListByProject(ctx context.Context, tx *gorm.DB, workspaceID, projectID uuid.UUID) ([]*types.Sample, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, fields map[string]interface{}) (int64, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (int64, error)
	Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error)
}

type sampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleRepo(db *gorm.DB, baseLog *logger.Logger) SampleRepo {
	repoLog := baseLog.With("repo", "SampleRepo")
	return &sampleRepo{db: db, log: repoLog}
}

func (sr *sampleRepo) Create(ctx context.Context, tx *gorm.DB, samples []*types.Sample) ([]*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(samples) == 0 {
		return []*types.Sample{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&samples).Error; err != nil {
		return nil, err
	}
	return samples, nil
}

func (sr *sampleRepo) GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result types.Sample
	err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *sampleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID) ([]*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Sample
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

func (sr *sampleRepo) ListByProject(ctx context.Context, tx *gorm.DB, workspaceID, projectID uuid.UUID) ([]*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Sample
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND project_id = ?", workspaceID, projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sampleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Sample{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (sr *sampleRepo) SoftDelete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Delete(&types.Sample{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (sr *sampleRepo) Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Sample{}).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
