package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

// maxLineageHops bounds the supersession chain walk as a cycle guard.
const maxLineageHops = 64

type CreateSampleInput struct {
	ProjectID   uuid.UUID      `json:"project_id"`
	TrialID     *uuid.UUID     `json:"trial_id,omitempty"`
	Type        string         `json:"type"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	ExternalRef *string        `json:"external_ref,omitempty"`
}

type UpdateSampleInput struct {
	Type        *string         `json:"type,omitempty"`
	Metadata    *datatypes.JSON `json:"metadata,omitempty"`
	ExternalRef *string         `json:"external_ref,omitempty"`
}

type CreateDerivedSampleInput struct {
	ParentSampleID uuid.UUID      `json:"parent_sample_id"`
	SupersedesID   *uuid.UUID     `json:"supersedes_id,omitempty"`
	Type           string         `json:"type"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
}

// Lineage is the full ancestry of a derived sample: the supersession chain
// newest-first, then the root sample it all derives from.
type Lineage struct {
	Chain []*types.DerivedSample `json:"chain"`
	Root  *types.Sample          `json:"root"`
}

type SampleService interface {
	Create(ctx context.Context, input CreateSampleInput) (*types.Sample, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Sample, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*types.Sample, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateSampleInput) (*types.Sample, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CreateDerived(ctx context.Context, input CreateDerivedSampleInput) (*types.DerivedSample, error)
	ListDerived(ctx context.Context, parentSampleID uuid.UUID) ([]*types.DerivedSample, error)
	GetLineage(ctx context.Context, derivedID uuid.UUID) (*Lineage, error)
}

type sampleService struct {
	db          *gorm.DB
	log         *logger.Logger
	sampleRepo  repos.SampleRepo
	derivedRepo repos.DerivedSampleRepo
	projectRepo repos.ProjectRepo
}

func NewSampleService(db *gorm.DB, log *logger.Logger, sampleRepo repos.SampleRepo, derivedRepo repos.DerivedSampleRepo, projectRepo repos.ProjectRepo) SampleService {
	serviceLog := log.With("service", "SampleService")
	return &sampleService{db: db, log: serviceLog, sampleRepo: sampleRepo, derivedRepo: derivedRepo, projectRepo: projectRepo}
}

func (ss *sampleService) Create(ctx context.Context, input CreateSampleInput) (*types.Sample, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not create samples")
	}
	if input.Type == "" {
		return nil, apierr.InvalidData("sample type is required")
	}
	project, err := ss.projectRepo.GetByID(ctx, nil, rd.WorkspaceID, input.ProjectID)
	if err != nil {
		return nil, storeErr("create sample", err)
	}
	if project == nil {
		return nil, apierr.NotFound("project not found")
	}
	created, err := ss.sampleRepo.Create(ctx, nil, []*types.Sample{{
		ID:          uuid.New(),
		WorkspaceID: rd.WorkspaceID,
		ProjectID:   input.ProjectID,
		TrialID:     input.TrialID,
		Type:        input.Type,
		Metadata:    input.Metadata,
		ExternalRef: input.ExternalRef,
	}})
	if err != nil {
		return nil, storeErr("create sample", err)
	}
	return created[0], nil
}

func (ss *sampleService) Get(ctx context.Context, id uuid.UUID) (*types.Sample, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	sample, err := ss.sampleRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("get sample", err)
	}
	if sample == nil {
		return nil, apierr.NotFound("sample not found")
	}
	return sample, nil
}

func (ss *sampleService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*types.Sample, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := ss.sampleRepo.ListByProject(ctx, nil, rd.WorkspaceID, projectID)
	if err != nil {
		return nil, storeErr("list samples", err)
	}
	return samples, nil
}

func (ss *sampleService) Update(ctx context.Context, id uuid.UUID, input UpdateSampleInput) (*types.Sample, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not update samples")
	}

	fields := map[string]interface{}{}
	if input.Type != nil {
		if *input.Type == "" {
			return nil, apierr.InvalidData("sample type cannot be empty")
		}
		fields["type"] = *input.Type
	}
	if input.Metadata != nil {
		fields["metadata"] = *input.Metadata
	}
	if input.ExternalRef != nil {
		fields["external_ref"] = *input.ExternalRef
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidData("no fields supplied for update")
	}

	rows, err := ss.sampleRepo.UpdateFields(ctx, nil, rd.WorkspaceID, id, fields)
	if err != nil {
		return nil, storeErr("update sample", err)
	}
	if rows == 0 {
		return nil, apierr.NotFound("sample not found")
	}
	sample, err := ss.sampleRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("update sample", err)
	}
	if sample == nil {
		return nil, apierr.NotFound("sample not found")
	}
	return sample, nil
}

func (ss *sampleService) Delete(ctx context.Context, id uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	if rd.Role == types.RoleViewer {
		return apierr.Forbidden("viewers may not delete samples")
	}
	rows, err := ss.sampleRepo.SoftDelete(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return storeErr("delete sample", err)
	}
	if rows == 0 {
		return apierr.NotFound("sample not found")
	}
	return nil
}

func (ss *sampleService) CreateDerived(ctx context.Context, input CreateDerivedSampleInput) (*types.DerivedSample, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not create derived samples")
	}
	if input.Type == "" {
		return nil, apierr.InvalidData("derived sample type is required")
	}

	parent, err := ss.sampleRepo.GetByID(ctx, nil, rd.WorkspaceID, input.ParentSampleID)
	if err != nil {
		return nil, storeErr("create derived sample", err)
	}
	if parent == nil {
		return nil, apierr.NotFound("parent sample not found")
	}

	var derived *types.DerivedSample
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.SupersedesID != nil {
			predecessor, err := ss.derivedRepo.GetByID(ctx, tx, rd.WorkspaceID, *input.SupersedesID)
			if err != nil {
				return storeErr("create derived sample", err)
			}
			if predecessor == nil {
				return apierr.NotFound("superseded derived sample not found")
			}
			if predecessor.ParentSampleID != input.ParentSampleID {
				return apierr.InvalidData("superseded derived sample belongs to a different lineage")
			}
			rows, err := ss.derivedRepo.MarkSuperseded(ctx, tx, predecessor.ID, time.Now().UTC())
			if err != nil {
				return storeErr("create derived sample", err)
			}
			if rows == 0 {
				return apierr.StaleSupersession("derived sample %s is already superseded", predecessor.ID)
			}
		}
		created, err := ss.derivedRepo.Create(ctx, tx, []*types.DerivedSample{{
			ID:             uuid.New(),
			WorkspaceID:    rd.WorkspaceID,
			ParentSampleID: input.ParentSampleID,
			SupersedesID:   input.SupersedesID,
			Type:           input.Type,
			Metadata:       input.Metadata,
		}})
		if err != nil {
			return storeErr("create derived sample", err)
		}
		derived = created[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return derived, nil
}

func (ss *sampleService) ListDerived(ctx context.Context, parentSampleID uuid.UUID) ([]*types.DerivedSample, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	parent, err := ss.sampleRepo.GetByID(ctx, nil, rd.WorkspaceID, parentSampleID)
	if err != nil {
		return nil, storeErr("list derived samples", err)
	}
	if parent == nil {
		return nil, apierr.NotFound("parent sample not found")
	}
	derived, err := ss.derivedRepo.ListByParent(ctx, nil, rd.WorkspaceID, parentSampleID)
	if err != nil {
		return nil, storeErr("list derived samples", err)
	}
	return derived, nil
}

func (ss *sampleService) GetLineage(ctx context.Context, derivedID uuid.UUID) (*Lineage, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	lineage := &Lineage{Chain: []*types.DerivedSample{}}
	currentID := derivedID
	for hop := 0; ; hop++ {
		if hop >= maxLineageHops {
			return nil, apierr.InvalidData("lineage chain exceeds %d hops", maxLineageHops)
		}
		node, err := ss.derivedRepo.GetByID(ctx, nil, rd.WorkspaceID, currentID)
		if err != nil {
			return nil, storeErr("walk lineage", err)
		}
		if node == nil {
			if hop == 0 {
				return nil, apierr.NotFound("derived sample not found")
			}
			return nil, apierr.Internal(fmt.Errorf("lineage chain references missing derived sample %s", currentID))
		}
		lineage.Chain = append(lineage.Chain, node)
		if node.SupersedesID == nil {
			root, err := ss.sampleRepo.GetByID(ctx, nil, rd.WorkspaceID, node.ParentSampleID)
			if err != nil {
				return nil, storeErr("walk lineage", err)
			}
			if root == nil {
				return nil, apierr.NotFound("root sample not found")
			}
			lineage.Root = root
			return lineage, nil
		}
		currentID = *node.SupersedesID
	}
}
