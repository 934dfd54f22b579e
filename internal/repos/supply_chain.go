package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type SupplyChainRequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, requests []*types.SupplyChainRequest) ([]*types.SupplyChainRequest, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SupplyChainRequest, error)
	ListInvolving(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.SupplyChainRequest, error)
	UpdateStatusGuarded(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStatus, toStatus string, extra map[string]interface{}) (int64, error)
	CountOpen(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error)
}

type supplyChainRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSupplyChainRequestRepo(db *gorm.DB, baseLog *logger.Logger) SupplyChainRequestRepo {
	repoLog := baseLog.With("repo", "SupplyChainRequestRepo")
	return &supplyChainRequestRepo{db: db, log: repoLog}
}

func (sr *supplyChainRequestRepo) Create(ctx context.Context, tx *gorm.DB, requests []*types.SupplyChainRequest) ([]*types.SupplyChainRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(requests) == 0 {
		return []*types.SupplyChainRequest{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// GetByID is not workspace-scoped: both sides of a handoff must see the
// request. Callers enforce which side may act on it.
func (sr *supplyChainRequestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SupplyChainRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result types.SupplyChainRequest
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *supplyChainRequestRepo) ListInvolving(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.SupplyChainRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.SupplyChainRequest
	if err := transaction.WithContext(ctx).
		Where("from_workspace_id = ? OR to_workspace_id = ?", workspaceID, workspaceID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *supplyChainRequestRepo) UpdateStatusGuarded(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStatus, toStatus string, extra map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	fields := map[string]interface{}{"status": toStatus}
	for k, v := range extra {
		fields[k] = v
	}
	res := transaction.WithContext(ctx).
		Model(&types.SupplyChainRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (sr *supplyChainRequestRepo) CountOpen(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SupplyChainRequest{}).
		Where("(from_workspace_id = ? OR to_workspace_id = ?) AND status NOT IN ?",
			workspaceID, workspaceID, []string{types.HandoffStatusCompleted, types.HandoffStatusRejected}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
