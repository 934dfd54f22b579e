package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type BatchRepo interface {
	Create(ctx context.Context, tx *gorm.DB, batches []*types.Batch) ([]*types.Batch, error)
	GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.Batch, error)
	List(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.Batch, error)
	UpdateStatusGuarded(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStatus, toStatus string) (int64, error)
	AddSamples(ctx context.Context, tx *gorm.DB, links []*types.BatchSample) error
	ListSampleIDs(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]uuid.UUID, error)
	Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error)
}

type batchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBatchRepo(db *gorm.DB, baseLog *logger.Logger) BatchRepo {
	repoLog := baseLog.With("repo", "BatchRepo")
	return &batchRepo{db: db, log: repoLog}
}

func (br *batchRepo) Create(ctx context.Context, tx *gorm.DB, batches []*types.Batch) ([]*types.Batch, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	if len(batches) == 0 {
		return []*types.Batch{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (br *batchRepo) GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.Batch, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var result types.Batch
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

func (br *batchRepo) List(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.Batch, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var results []*types.Batch
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateStatusGuarded only flips status when the row still holds
// fromStatus. Zero rows affected means a concurrent transition won.
func (br *batchRepo) UpdateStatusGuarded(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStatus, toStatus string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Batch{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (br *batchRepo) AddSamples(ctx context.Context, tx *gorm.DB, links []*types.BatchSample) error {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	if len(links) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&links).Error
}

func (br *batchRepo) ListSampleIDs(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.BatchSample{}).
		Where("batch_id = ?", batchID).
		Pluck("sample_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (br *batchRepo) Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Batch{}).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
