package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type CreateHandoffInput struct {
	FromOrgID    uuid.UUID  `json:"from_org_id"`
	ToOrgID      uuid.UUID  `json:"to_org_id"`
	WorkflowType string     `json:"workflow_type"`
	Priority     string     `json:"priority,omitempty"`
	SampleID     *uuid.UUID `json:"sample_id,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type SupplyChainService interface {
	Create(ctx context.Context, input CreateHandoffInput) (*types.SupplyChainRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error)
	List(ctx context.Context) ([]*types.SupplyChainRequest, error)
	Accept(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error)
	Reject(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error)
	Advance(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error)
	Complete(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error)
}

type supplyChainService struct {
	db          *gorm.DB
	log         *logger.Logger
	requestRepo repos.SupplyChainRequestRepo
	orgRepo     repos.OrganizationRepo
	sampleRepo  repos.SampleRepo
	projectRepo repos.ProjectRepo
}

func NewSupplyChainService(db *gorm.DB, log *logger.Logger, requestRepo repos.SupplyChainRequestRepo, orgRepo repos.OrganizationRepo, sampleRepo repos.SampleRepo, projectRepo repos.ProjectRepo) SupplyChainService {
	serviceLog := log.With("service", "SupplyChainService")
	return &supplyChainService{
		db:          db,
		log:         serviceLog,
		requestRepo: requestRepo,
		orgRepo:     orgRepo,
		sampleRepo:  sampleRepo,
		projectRepo: projectRepo,
	}
}

var validHandoffPriorities = map[string]struct{}{
	"low":    {},
	"normal": {},
	"high":   {},
	"urgent": {},
}

func (scs *supplyChainService) Create(ctx context.Context, input CreateHandoffInput) (*types.SupplyChainRequest, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not create handoff requests")
	}
	if _, ok := types.ValidWorkflowTypes[input.WorkflowType]; !ok {
		return nil, apierr.InvalidData("invalid workflow type %q", input.WorkflowType)
	}
	priority := input.Priority
	if priority == "" {
		priority = "normal"
	}
	if _, ok := validHandoffPriorities[priority]; !ok {
		return nil, apierr.InvalidData("invalid priority %q", priority)
	}
	if input.WorkflowType != types.WorkflowProductContinuation && input.SampleID == nil {
		return nil, apierr.InvalidData("workflow %s requires a sample", input.WorkflowType)
	}

	fromOrgs, err := scs.orgRepo.GetByIDs(ctx, nil, rd.WorkspaceID, []uuid.UUID{input.FromOrgID})
	if err != nil {
		return nil, storeErr("create handoff", err)
	}
	if len(fromOrgs) == 0 {
		return nil, apierr.InvalidData("originating organization not found in workspace")
	}
	toOrg, err := scs.orgRepo.GetByIDAny(ctx, nil, input.ToOrgID)
	if err != nil {
		return nil, storeErr("create handoff", err)
	}
	if toOrg == nil {
		return nil, apierr.InvalidData("receiving organization not found")
	}
	if toOrg.WorkspaceID == rd.WorkspaceID {
		return nil, apierr.InvalidData("receiving organization must be in a different workspace")
	}
	if input.SampleID != nil {
		sample, err := scs.sampleRepo.GetByID(ctx, nil, rd.WorkspaceID, *input.SampleID)
		if err != nil {
			return nil, storeErr("create handoff", err)
		}
		if sample == nil {
			return nil, apierr.NotFound("sample not found")
		}
	}

	created, err := scs.requestRepo.Create(ctx, nil, []*types.SupplyChainRequest{{
		ID:              uuid.New(),
		FromWorkspaceID: rd.WorkspaceID,
		ToWorkspaceID:   toOrg.WorkspaceID,
		FromOrgID:       input.FromOrgID,
		ToOrgID:         input.ToOrgID,
		WorkflowType:    input.WorkflowType,
		Status:          types.HandoffStatusPending,
		Priority:        priority,
		SampleID:        input.SampleID,
		Notes:           input.Notes,
	}})
	if err != nil {
		return nil, storeErr("create handoff", err)
	}
	return created[0], nil
}

// visible returns the request only if the caller's workspace is one of the
// two parties. Anything else reads as not found.
func (scs *supplyChainService) visible(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) (*types.SupplyChainRequest, error) {
	request, err := scs.requestRepo.GetByID(ctx, tx, id)
	if err != nil {
		return nil, storeErr("get handoff", err)
	}
	if request == nil || (request.FromWorkspaceID != workspaceID && request.ToWorkspaceID != workspaceID) {
		return nil, apierr.NotFound("handoff request not found")
	}
	return request, nil
}

func (scs *supplyChainService) Get(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return scs.visible(ctx, nil, rd.WorkspaceID, id)
}

func (scs *supplyChainService) List(ctx context.Context) ([]*types.SupplyChainRequest, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := scs.requestRepo.ListInvolving(ctx, nil, rd.WorkspaceID)
	if err != nil {
		return nil, storeErr("list handoffs", err)
	}
	return requests, nil
}

// Accept flips pending→accepted and runs the workflow side-effects in the
// same transaction: material_transfer and supply_chain create a linked
// project and sample in the receiving workspace, product_continuation only
// the project, analysis_only nothing.
func (scs *supplyChainService) Accept(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not accept handoff requests")
	}

	var request *types.SupplyChainRequest
	err = scs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err = scs.visible(ctx, tx, rd.WorkspaceID, id)
		if err != nil {
			return err
		}
		if request.ToWorkspaceID != rd.WorkspaceID {
			return apierr.Forbidden("only the receiving workspace may accept")
		}
		if request.Status != types.HandoffStatusPending {
			return apierr.InvalidStateTransition("handoff cannot move from %s to accepted", request.Status)
		}

		extra := map[string]interface{}{}
		switch request.WorkflowType {
		case types.WorkflowMaterialTransfer, types.WorkflowSupplyChain, types.WorkflowProductContinuation:
			linkedProject, linkedSample, err := scs.materialize(ctx, tx, request)
			if err != nil {
				return err
			}
			extra["linked_project_id"] = linkedProject.ID
			request.LinkedProjectID = &linkedProject.ID
			if linkedSample != nil {
				extra["linked_sample_id"] = linkedSample.ID
				request.LinkedSampleID = &linkedSample.ID
			}
		case types.WorkflowAnalysisOnly:
			// No cross-workspace records; the receiving lab analyzes in place.
		}

		rows, err := scs.requestRepo.UpdateStatusGuarded(ctx, tx, id, types.HandoffStatusPending, types.HandoffStatusAccepted, extra)
		if err != nil {
			return storeErr("accept handoff", err)
		}
		if rows == 0 {
			return apierr.InvalidStateTransition("handoff status changed concurrently, expected pending")
		}
		request.Status = types.HandoffStatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// materialize creates the receiving-side project (and sample, for material
// workflows) carrying an external reference back to the originating record.
func (scs *supplyChainService) materialize(ctx context.Context, tx *gorm.DB, request *types.SupplyChainRequest) (*types.Project, *types.Sample, error) {
	fromOrg, err := scs.orgRepo.GetByIDAny(ctx, tx, request.FromOrgID)
	if err != nil {
		return nil, nil, storeErr("accept handoff", err)
	}
	if fromOrg == nil {
		return nil, nil, apierr.NotFound("originating organization not found")
	}

	externalClient := fromOrg.Name
	externalRef := fmt.Sprintf("handoff:%s", request.ID)
	projects, err := scs.projectRepo.Create(ctx, tx, []*types.Project{{
		ID:                 uuid.New(),
		WorkspaceID:        request.ToWorkspaceID,
		Name:               fmt.Sprintf("%s handoff from %s", request.WorkflowType, fromOrg.Name),
		ExternalClientName: &externalClient,
		ExecutingOrgID:     request.ToOrgID,
		WorkflowMode:       types.WorkflowModeAnalysisFirst,
		Status:             types.ProjectStatusActive,
		ExternalRef:        &externalRef,
	}})
	if err != nil {
		return nil, nil, storeErr("accept handoff", err)
	}
	linkedProject := projects[0]

	if request.WorkflowType == types.WorkflowProductContinuation {
		return linkedProject, nil, nil
	}
	if request.SampleID == nil {
		return nil, nil, apierr.InvalidData("handoff has no sample to transfer")
	}
	origin, err := scs.sampleRepo.GetByID(ctx, tx, request.FromWorkspaceID, *request.SampleID)
	if err != nil {
		return nil, nil, storeErr("accept handoff", err)
	}
	if origin == nil {
		return nil, nil, apierr.NotFound("originating sample not found")
	}
	sampleRef := fmt.Sprintf("handoff:%s:sample:%s", request.ID, origin.ID)
	samples, err := scs.sampleRepo.Create(ctx, tx, []*types.Sample{{
		ID:          uuid.New(),
		WorkspaceID: request.ToWorkspaceID,
		ProjectID:   linkedProject.ID,
		Type:        origin.Type,
		Metadata:    origin.Metadata,
		ExternalRef: &sampleRef,
	}})
	if err != nil {
		return nil, nil, storeErr("accept handoff", err)
	}
	return linkedProject, samples[0], nil
}

func (scs *supplyChainService) Reject(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not reject handoff requests")
	}

	request, err := scs.visible(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	if request.ToWorkspaceID != rd.WorkspaceID {
		return nil, apierr.Forbidden("only the receiving workspace may reject")
	}
	if request.Status != types.HandoffStatusPending {
		return nil, apierr.InvalidStateTransition("handoff cannot move from %s to rejected", request.Status)
	}

	now := time.Now().UTC()
	rows, err := scs.requestRepo.UpdateStatusGuarded(ctx, nil, id, types.HandoffStatusPending, types.HandoffStatusRejected, map[string]interface{}{
		"resolved_at": now,
	})
	if err != nil {
		return nil, storeErr("reject handoff", err)
	}
	if rows == 0 {
		return nil, apierr.InvalidStateTransition("handoff status changed concurrently, expected pending")
	}
	request.Status = types.HandoffStatusRejected
	request.ResolvedAt = &now
	return request, nil
}

func (scs *supplyChainService) Advance(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not advance handoff requests")
	}

	request, err := scs.visible(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	if request.ToWorkspaceID != rd.WorkspaceID {
		return nil, apierr.Forbidden("only the receiving workspace may advance")
	}
	if request.Status != types.HandoffStatusAccepted {
		return nil, apierr.InvalidStateTransition("handoff cannot move from %s to in_progress", request.Status)
	}

	rows, err := scs.requestRepo.UpdateStatusGuarded(ctx, nil, id, types.HandoffStatusAccepted, types.HandoffStatusInProgress, nil)
	if err != nil {
		return nil, storeErr("advance handoff", err)
	}
	if rows == 0 {
		return nil, apierr.InvalidStateTransition("handoff status changed concurrently, expected accepted")
	}
	request.Status = types.HandoffStatusInProgress
	return request, nil
}

func (scs *supplyChainService) Complete(ctx context.Context, id uuid.UUID) (*types.SupplyChainRequest, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not complete handoff requests")
	}

	request, err := scs.visible(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	if request.ToWorkspaceID != rd.WorkspaceID {
		return nil, apierr.Forbidden("only the receiving workspace may complete")
	}
	if request.Status != types.HandoffStatusInProgress {
		return nil, apierr.InvalidStateTransition("handoff cannot move from %s to completed", request.Status)
	}

	now := time.Now().UTC()
	rows, err := scs.requestRepo.UpdateStatusGuarded(ctx, nil, id, types.HandoffStatusInProgress, types.HandoffStatusCompleted, map[string]interface{}{
		"resolved_at": now,
	})
	if err != nil {
		return nil, storeErr("complete handoff", err)
	}
	if rows == 0 {
		return nil, apierr.InvalidStateTransition("handoff status changed concurrently, expected in_progress")
	}
	request.Status = types.HandoffStatusCompleted
	request.ResolvedAt = &now
	return request, nil
}
