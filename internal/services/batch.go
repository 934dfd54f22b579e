package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type CreateBatchInput struct {
	Name          string      `json:"name"`
	ExecutionMode string      `json:"execution_mode,omitempty"`
	SampleIDs     []uuid.UUID `json:"sample_ids,omitempty"`
}

type BatchService interface {
	Create(ctx context.Context, input CreateBatchInput) (*types.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Batch, error)
	List(ctx context.Context) ([]*types.Batch, error)
	AddSamples(ctx context.Context, id uuid.UUID, sampleIDs []uuid.UUID) error
	ListSampleIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	Transition(ctx context.Context, id uuid.UUID, toStatus string) (*types.Batch, error)
	Complete(ctx context.Context, id uuid.UUID) (*types.Batch, error)
}

type batchService struct {
	db           *gorm.DB
	log          *logger.Logger
	batchRepo    repos.BatchRepo
	sampleRepo   repos.SampleRepo
	analysisRepo repos.AnalysisRepo
}

func NewBatchService(db *gorm.DB, log *logger.Logger, batchRepo repos.BatchRepo, sampleRepo repos.SampleRepo, analysisRepo repos.AnalysisRepo) BatchService {
	serviceLog := log.With("service", "BatchService")
	return &batchService{db: db, log: serviceLog, batchRepo: batchRepo, sampleRepo: sampleRepo, analysisRepo: analysisRepo}
}

func (bs *batchService) Create(ctx context.Context, input CreateBatchInput) (*types.Batch, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not create batches")
	}
	if input.Name == "" {
		return nil, apierr.InvalidData("batch name is required")
	}
	mode := input.ExecutionMode
	if mode == "" {
		mode = types.BatchExecutionInternal
	}
	if mode != types.BatchExecutionInternal && mode != types.BatchExecutionExternal {
		return nil, apierr.InvalidData("invalid execution mode %q", mode)
	}

	var batch *types.Batch
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(input.SampleIDs) > 0 {
			samples, err := bs.sampleRepo.GetByIDs(ctx, tx, rd.WorkspaceID, input.SampleIDs)
			if err != nil {
				return storeErr("create batch", err)
			}
			if len(samples) != len(input.SampleIDs) {
				return apierr.InvalidData("one or more samples not found in workspace")
			}
		}
		created, err := bs.batchRepo.Create(ctx, tx, []*types.Batch{{
			ID:            uuid.New(),
			WorkspaceID:   rd.WorkspaceID,
			Name:          input.Name,
			Status:        types.BatchStatusCreated,
			ExecutionMode: mode,
		}})
		if err != nil {
			return storeErr("create batch", err)
		}
		batch = created[0]
		if len(input.SampleIDs) > 0 {
			links := make([]*types.BatchSample, 0, len(input.SampleIDs))
			for _, sampleID := range input.SampleIDs {
				links = append(links, &types.BatchSample{
					ID:       uuid.New(),
					BatchID:  batch.ID,
					SampleID: sampleID,
				})
			}
			if err := bs.batchRepo.AddSamples(ctx, tx, links); err != nil {
				return storeErr("create batch", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (bs *batchService) Get(ctx context.Context, id uuid.UUID) (*types.Batch, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := bs.batchRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("get batch", err)
	}
	if batch == nil {
		return nil, apierr.NotFound("batch not found")
	}
	return batch, nil
}

func (bs *batchService) List(ctx context.Context) ([]*types.Batch, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	batches, err := bs.batchRepo.List(ctx, nil, rd.WorkspaceID)
	if err != nil {
		return nil, storeErr("list batches", err)
	}
	return batches, nil
}

func (bs *batchService) AddSamples(ctx context.Context, id uuid.UUID, sampleIDs []uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	if rd.Role == types.RoleViewer {
		return apierr.Forbidden("viewers may not modify batches")
	}
	if len(sampleIDs) == 0 {
		return apierr.InvalidData("no sample ids supplied")
	}
	return bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := bs.batchRepo.GetByID(ctx, tx, rd.WorkspaceID, id)
		if err != nil {
			return storeErr("add batch samples", err)
		}
		if batch == nil {
			return apierr.NotFound("batch not found")
		}
		if types.BatchStatusTerminal(batch.Status) {
			return apierr.InvalidStateTransition("batch %s is %s", batch.ID, batch.Status)
		}
		samples, err := bs.sampleRepo.GetByIDs(ctx, tx, rd.WorkspaceID, sampleIDs)
		if err != nil {
			return storeErr("add batch samples", err)
		}
		if len(samples) != len(sampleIDs) {
			return apierr.InvalidData("one or more samples not found in workspace")
		}
		links := make([]*types.BatchSample, 0, len(sampleIDs))
		for _, sampleID := range sampleIDs {
			links = append(links, &types.BatchSample{
				ID:       uuid.New(),
				BatchID:  id,
				SampleID: sampleID,
			})
		}
		if err := bs.batchRepo.AddSamples(ctx, tx, links); err != nil {
			return storeErr("add batch samples", err)
		}
		return nil
	})
}

func (bs *batchService) ListSampleIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := bs.batchRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("list batch samples", err)
	}
	if batch == nil {
		return nil, apierr.NotFound("batch not found")
	}
	sampleIDs, err := bs.batchRepo.ListSampleIDs(ctx, nil, id)
	if err != nil {
		return nil, storeErr("list batch samples", err)
	}
	return sampleIDs, nil
}

// Transition moves the batch forward one or more ranks. The UPDATE is
// guarded on the status read here, so a concurrent transition surfaces as
// RowsAffected 0 rather than a silent overwrite.
func (bs *batchService) Transition(ctx context.Context, id uuid.UUID, toStatus string) (*types.Batch, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not transition batches")
	}
	if toStatus == types.BatchStatusCompleted {
		return bs.Complete(ctx, id)
	}

	batch, err := bs.batchRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("transition batch", err)
	}
	if batch == nil {
		return nil, apierr.NotFound("batch not found")
	}
	if types.BatchStatusTerminal(batch.Status) {
		return nil, apierr.InvalidStateTransition("batch %s is already %s", batch.ID, batch.Status)
	}

	if toStatus != types.BatchStatusFailed {
		toRank, ok := types.BatchStatusRank[toStatus]
		if !ok {
			return nil, apierr.InvalidData("invalid batch status %q", toStatus)
		}
		if toRank <= types.BatchStatusRank[batch.Status] {
			return nil, apierr.InvalidStateTransition("batch cannot move from %s to %s", batch.Status, toStatus)
		}
	}

	rows, err := bs.batchRepo.UpdateStatusGuarded(ctx, nil, id, batch.Status, toStatus)
	if err != nil {
		return nil, storeErr("transition batch", err)
	}
	if rows == 0 {
		return nil, apierr.InvalidStateTransition("batch status changed concurrently, expected %s", batch.Status)
	}
	batch.Status = toStatus
	return batch, nil
}

// Complete requires every analysis in the batch to be terminal.
func (bs *batchService) Complete(ctx context.Context, id uuid.UUID) (*types.Batch, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not complete batches")
	}

	var batch *types.Batch
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err = bs.batchRepo.GetByID(ctx, tx, rd.WorkspaceID, id)
		if err != nil {
			return storeErr("complete batch", err)
		}
		if batch == nil {
			return apierr.NotFound("batch not found")
		}
		if types.BatchStatusTerminal(batch.Status) {
			return apierr.InvalidStateTransition("batch %s is already %s", batch.ID, batch.Status)
		}
		pending, err := bs.analysisRepo.CountNonTerminalByBatch(ctx, tx, id)
		if err != nil {
			return storeErr("complete batch", err)
		}
		if pending > 0 {
			return apierr.InvalidStateTransition("incomplete_batch: %d analyses are not terminal", pending)
		}
		rows, err := bs.batchRepo.UpdateStatusGuarded(ctx, tx, id, batch.Status, types.BatchStatusCompleted)
		if err != nil {
			return storeErr("complete batch", err)
		}
		if rows == 0 {
			return apierr.InvalidStateTransition("batch status changed concurrently, expected %s", batch.Status)
		}
		batch.Status = types.BatchStatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
