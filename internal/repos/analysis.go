package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type AnalysisRepo interface {
	Create(ctx context.Context, tx *gorm.DB, analyses []*types.Analysis) ([]*types.Analysis, error)
	GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.Analysis, error)
	ListByBatch(ctx context.Context, tx *gorm.DB, workspaceID, batchID uuid.UUID) ([]*types.Analysis, error)
	GetAuthoritative(ctx context.Context, tx *gorm.DB, sampleID, typeID uuid.UUID) (*types.Analysis, error)
	ClearAuthoritativeGuarded(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error)
	CountNonTerminalByBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, status string) (int64, error)
	SetReport(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, key, url string) (int64, error)
	ClearReport(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (int64, error)
	Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	repoLog := baseLog.With("repo", "AnalysisRepo")
	return &analysisRepo{db: db, log: repoLog}
}

func (ar *analysisRepo) Create(ctx context.Context, tx *gorm.DB, analyses []*types.Analysis) ([]*types.Analysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if len(analyses) == 0 {
		return []*types.Analysis{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

func (ar *analysisRepo) GetByID(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.Analysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Analysis
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

func (ar *analysisRepo) ListByBatch(ctx context.Context, tx *gorm.DB, workspaceID, batchID uuid.UUID) ([]*types.Analysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.Analysis
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND batch_id = ?", workspaceID, batchID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *analysisRepo) GetAuthoritative(ctx context.Context, tx *gorm.DB, sampleID, typeID uuid.UUID) (*types.Analysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Analysis
	err := transaction.WithContext(ctx).
		Where("sample_id = ? AND type_id = ? AND is_authoritative = ?", sampleID, typeID, true).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearAuthoritativeGuarded is the supersession compare-and-swap: the flag
// only clears while the predecessor still holds it. Zero rows affected
// means the predecessor went stale under a concurrent supersession.
func (ar *analysisRepo) ClearAuthoritativeGuarded(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Analysis{}).
		Where("id = ? AND is_authoritative = ?", id, true).
		Update("is_authoritative", false)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (ar *analysisRepo) CountNonTerminalByBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Analysis{}).
		Where("batch_id = ? AND status NOT IN ?", batchID, []string{types.AnalysisStatusCompleted, types.AnalysisStatusFailed}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (ar *analysisRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, status string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Analysis{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Update("status", status)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (ar *analysisRepo) SetReport(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID, key, url string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Analysis{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Updates(map[string]interface{}{
			"report_key": key,
			"report_url": url,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (ar *analysisRepo) ClearReport(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Analysis{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Updates(map[string]interface{}{
			"report_key": nil,
			"report_url": nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (ar *analysisRepo) Count(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Analysis{}).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
