package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type TrialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, trials []*types.Trial) ([]*types.Trial, error)
	GetByID(ctx context.Context, tx *gorm.DB, projectID, id uuid.UUID) (*types.Trial, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Trial, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, projectID, id uuid.UUID, fields map[string]interface{}) (int64, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, projectID, id uuid.UUID) (int64, error)
	GetTemplate(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.TrialParameterTemplate, error)
	ReplaceTemplate(ctx context.Context, tx *gorm.DB, template *types.TrialParameterTemplate) (*types.TrialParameterTemplate, error)
	CountByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error)
}

type trialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrialRepo(db *gorm.DB, baseLog *logger.Logger) TrialRepo {
	repoLog := baseLog.With("repo", "TrialRepo")
	return &trialRepo{db: db, log: repoLog}
}

func (tr *trialRepo) Create(ctx context.Context, tx *gorm.DB, trials []*types.Trial) ([]*types.Trial, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if len(trials) == 0 {
		return []*types.Trial{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&trials).Error; err != nil {
		return nil, err
	}
	return trials, nil
}

func (tr *trialRepo) GetByID(ctx context.Context, tx *gorm.DB, projectID, id uuid.UUID) (*types.Trial, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var result types.Trial
	err := transaction.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *trialRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Trial, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var results []*types.Trial
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *trialRepo) UpdateFields(ctx context.Context, tx *gorm.DB, projectID, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Trial{}).
		Where("project_id = ? AND id = ?", projectID, id).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (tr *trialRepo) SoftDelete(ctx context.Context, tx *gorm.DB, projectID, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	res := transaction.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, id).
		Delete(&types.Trial{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (tr *trialRepo) GetTemplate(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.TrialParameterTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var result types.TrialParameterTemplate
	err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ReplaceTemplate overwrites the project's parameter template whole. The
// prior column list is never merged in; the version counter records the
// overwrite.
func (tr *trialRepo) ReplaceTemplate(ctx context.Context, tx *gorm.DB, template *types.TrialParameterTemplate) (*types.TrialParameterTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	existing, err := tr.GetTemplate(ctx, transaction, template.ProjectID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		template.ID = uuid.New()
		template.Version = 1
		if err := transaction.WithContext(ctx).Create(template).Error; err != nil {
			return nil, err
		}
		return template, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.TrialParameterTemplate{}).
		Where("project_id = ?", template.ProjectID).
		Updates(map[string]interface{}{
			"columns": template.Columns,
			"version": existing.Version + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	return tr.GetTemplate(ctx, transaction, template.ProjectID)
}

func (tr *trialRepo) CountByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Trial{}).
		Joins(`JOIN "project" ON "project".id = "trial".project_id`).
		Where(`"project".workspace_id = ? AND "project".deleted_at IS NULL`, workspaceID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
