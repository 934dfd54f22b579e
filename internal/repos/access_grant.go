package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type AccessGrantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, grant *types.AccessGrant) (*types.AccessGrant, error)
	GetByTriple(ctx context.Context, tx *gorm.DB, userID uuid.UUID, objectType string, objectID uuid.UUID) (*types.AccessGrant, error)
	ListByObject(ctx context.Context, tx *gorm.DB, objectType string, objectID uuid.UUID) ([]*types.AccessGrant, error)
	DeleteByTriple(ctx context.Context, tx *gorm.DB, userID uuid.UUID, objectType string, objectID uuid.UUID) (int64, error)
	UpdateLevel(ctx context.Context, tx *gorm.DB, userID uuid.UUID, objectType string, objectID uuid.UUID, level string) (int64, error)
}

type accessGrantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccessGrantRepo(db *gorm.DB, baseLog *logger.Logger) AccessGrantRepo {
	repoLog := baseLog.With("repo", "AccessGrantRepo")
	return &accessGrantRepo{db: db, log: repoLog}
}

func (gr *accessGrantRepo) Create(ctx context.Context, tx *gorm.DB, grant *types.AccessGrant) (*types.AccessGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if err := transaction.WithContext(ctx).Create(grant).Error; err != nil {
		return nil, err
	}
	return grant, nil
}

func (gr *accessGrantRepo) GetByTriple(ctx context.Context, tx *gorm.DB, userID uuid.UUID, objectType string, objectID uuid.UUID) (*types.AccessGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	var result types.AccessGrant
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND object_type = ? AND object_id = ?", userID, objectType, objectID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByObject deliberately applies no workspace filter: grants are looked
// up by object coordinate so cross-tenant collaborators stay visible.
func (gr *accessGrantRepo) ListByObject(ctx context.Context, tx *gorm.DB, objectType string, objectID uuid.UUID) ([]*types.AccessGrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	var results []*types.AccessGrant
	if err := transaction.WithContext(ctx).
		Where("object_type = ? AND object_id = ?", objectType, objectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (gr *accessGrantRepo) DeleteByTriple(ctx context.Context, tx *gorm.DB, userID uuid.UUID, objectType string, objectID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	res := transaction.WithContext(ctx).
		Where("user_id = ? AND object_type = ? AND object_id = ?", userID, objectType, objectID).
		Delete(&types.AccessGrant{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (gr *accessGrantRepo) UpdateLevel(ctx context.Context, tx *gorm.DB, userID uuid.UUID, objectType string, objectID uuid.UUID, level string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.AccessGrant{}).
		Where("user_id = ? AND object_type = ? AND object_id = ?", userID, objectType, objectID).
		Update("access_level", level)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
