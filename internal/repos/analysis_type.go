package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type AnalysisTypeRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, analysisTypes []*types.AnalysisType) error
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.AnalysisType, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.AnalysisType, error)
}

type analysisTypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisTypeRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisTypeRepo {
	repoLog := baseLog.With("repo", "AnalysisTypeRepo")
	return &analysisTypeRepo{db: db, log: repoLog}
}

// Upsert seeds the catalog by name; re-seeding an existing name refreshes
// its unit instead of duplicating the row.
func (ar *analysisTypeRepo) Upsert(ctx context.Context, tx *gorm.DB, analysisTypes []*types.AnalysisType) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if len(analysisTypes) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"unit"}),
		}).
		Create(&analysisTypes).Error
}

func (ar *analysisTypeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.AnalysisType, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.AnalysisType
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *analysisTypeRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.AnalysisType, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.AnalysisType
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
