package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type DerivedSampleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, derived []*types.DerivedSample) ([]*types.DerivedSample, error)
	GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.DerivedSample, error)
	ListByParent(ctx context.Context, tx *gorm.DB, workspaceID, parentSampleID uuid.UUID) ([]*types.DerivedSample, error)
	MarkSuperseded(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (int64, error)
}

type derivedSampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDerivedSampleRepo(db *gorm.DB, baseLog *logger.Logger) DerivedSampleRepo {
	repoLog := baseLog.With("repo", "DerivedSampleRepo")
	return &derivedSampleRepo{db: db, log: repoLog}
}

func (dr *derivedSampleRepo) Create(ctx context.Context, tx *gorm.DB, derived []*types.DerivedSample) ([]*types.DerivedSample, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if len(derived) == 0 {
		return []*types.DerivedSample{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&derived).Error; err != nil {
		return nil, err
	}
	return derived, nil
}

func (dr *derivedSampleRepo) GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.DerivedSample, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var result types.DerivedSample
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

func (dr *derivedSampleRepo) ListByParent(ctx context.Context, tx *gorm.DB, workspaceID, parentSampleID uuid.UUID) ([]*types.DerivedSample, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var results []*types.DerivedSample
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND parent_sample_id = ?", workspaceID, parentSampleID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkSuperseded flips the predecessor out of the live-head position. The
// superseded_at IS NULL guard is the compare-and-swap: zero rows affected
// means another record superseded it first.
func (dr *derivedSampleRepo) MarkSuperseded(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.DerivedSample{}).
		Where("id = ? AND superseded_at IS NULL", id).
		Update("superseded_at", at)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
