package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/repos/testutil"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type handoffFixture struct {
	tx          *gorm.DB
	senderCtx   context.Context
	receiverCtx context.Context
	senderWS    *types.Workspace
	receiverWS  *types.Workspace
	senderOrg   *types.Organization
	receiverOrg *types.Organization
	sample      *types.Sample
	projectRepo repos.ProjectRepo
	sampleRepo  repos.SampleRepo
}

func newSupplyChainService(t *testing.T) (SupplyChainService, *handoffFixture) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	senderWS := testutil.SeedWorkspace(t, ctx, tx, "sender")
	receiverWS := testutil.SeedWorkspace(t, ctx, tx, "receiver")
	sender := testutil.SeedUser(t, ctx, tx, senderWS.ID, "sender@lab.test", types.RoleMember)
	receiver := testutil.SeedUser(t, ctx, tx, receiverWS.ID, "receiver@lab.test", types.RoleMember)
	senderOrg := testutil.SeedOrganization(t, ctx, tx, senderWS.ID, "Origin Labs", "laboratory")
	receiverOrg := testutil.SeedOrganization(t, ctx, tx, receiverWS.ID, "Destination Labs", "laboratory")
	project := testutil.SeedProject(t, ctx, tx, senderWS.ID, nil, senderOrg.ID)
	sample := testutil.SeedSample(t, ctx, tx, senderWS.ID, project.ID)

	projectRepo := repos.NewProjectRepo(tx, log)
	sampleRepo := repos.NewSampleRepo(tx, log)
	svc := NewSupplyChainService(tx, log,
		repos.NewSupplyChainRequestRepo(tx, log),
		repos.NewOrganizationRepo(tx, log),
		sampleRepo,
		projectRepo,
	)
	return svc, &handoffFixture{
		tx:          tx,
		senderCtx:   ctxAs(sender.ID, senderWS.ID, sender.Role),
		receiverCtx: ctxAs(receiver.ID, receiverWS.ID, receiver.Role),
		senderWS:    senderWS,
		receiverWS:  receiverWS,
		senderOrg:   senderOrg,
		receiverOrg: receiverOrg,
		sample:      sample,
		projectRepo: projectRepo,
		sampleRepo:  sampleRepo,
	}
}

func (fx *handoffFixture) input(workflow string) CreateHandoffInput {
	in := CreateHandoffInput{
		FromOrgID:    fx.senderOrg.ID,
		ToOrgID:      fx.receiverOrg.ID,
		WorkflowType: workflow,
	}
	if workflow != types.WorkflowProductContinuation {
		in.SampleID = &fx.sample.ID
	}
	return in
}

func TestHandoffCreateValidation(t *testing.T) {
	svc, fx := newSupplyChainService(t)

	t.Run("valid request defaults to pending and normal priority", func(t *testing.T) {
		request, err := svc.Create(fx.senderCtx, fx.input(types.WorkflowMaterialTransfer))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if request.Status != types.HandoffStatusPending {
			t.Fatalf("status = %s, want pending", request.Status)
		}
		if request.Priority != "normal" {
			t.Fatalf("priority = %s, want normal", request.Priority)
		}
		if request.ToWorkspaceID != fx.receiverWS.ID {
			t.Fatalf("to workspace = %s, want %s", request.ToWorkspaceID, fx.receiverWS.ID)
		}
	})

	t.Run("unknown workflow rejected", func(t *testing.T) {
		in := fx.input(types.WorkflowMaterialTransfer)
		in.WorkflowType = "teleport"
		if _, err := svc.Create(fx.senderCtx, in); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("material workflow requires a sample", func(t *testing.T) {
		in := fx.input(types.WorkflowMaterialTransfer)
		in.SampleID = nil
		if _, err := svc.Create(fx.senderCtx, in); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("receiving org in same workspace rejected", func(t *testing.T) {
		local := testutil.SeedOrganization(t, context.Background(), fx.tx, fx.senderWS.ID, "Local", "laboratory")
		in := fx.input(types.WorkflowMaterialTransfer)
		in.ToOrgID = local.ID
		if _, err := svc.Create(fx.senderCtx, in); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("originating org must belong to caller workspace", func(t *testing.T) {
		in := fx.input(types.WorkflowMaterialTransfer)
		in.FromOrgID = fx.receiverOrg.ID
		if _, err := svc.Create(fx.senderCtx, in); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})
}

func TestHandoffVisibility(t *testing.T) {
	svc, fx := newSupplyChainService(t)
	request, err := svc.Create(fx.senderCtx, fx.input(types.WorkflowAnalysisOnly))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(fx.senderCtx, request.ID); err != nil {
		t.Fatalf("sender get: %v", err)
	}
	if _, err := svc.Get(fx.receiverCtx, request.ID); err != nil {
		t.Fatalf("receiver get: %v", err)
	}

	strangerWS := testutil.SeedWorkspace(t, context.Background(), fx.tx, "stranger")
	stranger := testutil.SeedUser(t, context.Background(), fx.tx, strangerWS.ID, "stranger@lab.test", types.RoleAdmin)
	if _, err := svc.Get(ctxAs(stranger.ID, strangerWS.ID, stranger.Role), request.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("want not_found for non-party, got %v", err)
	}
}

func TestHandoffAcceptMaterializesRecords(t *testing.T) {
	t.Run("material_transfer creates linked project and sample", func(t *testing.T) {
		svc, fx := newSupplyChainService(t)
		request, err := svc.Create(fx.senderCtx, fx.input(types.WorkflowMaterialTransfer))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		accepted, err := svc.Accept(fx.receiverCtx, request.ID)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if accepted.Status != types.HandoffStatusAccepted {
			t.Fatalf("status = %s, want accepted", accepted.Status)
		}
		if accepted.LinkedProjectID == nil || accepted.LinkedSampleID == nil {
			t.Fatal("expected linked project and sample on accepted handoff")
		}

		ctx := context.Background()
		project, err := fx.projectRepo.GetByID(ctx, nil, fx.receiverWS.ID, *accepted.LinkedProjectID)
		if err != nil || project == nil {
			t.Fatalf("linked project lookup: project=%v err=%v", project, err)
		}
		if project.ExternalClientName == nil || *project.ExternalClientName != fx.senderOrg.Name {
			t.Fatalf("linked project external client = %v, want %s", project.ExternalClientName, fx.senderOrg.Name)
		}
		sample, err := fx.sampleRepo.GetByID(ctx, nil, fx.receiverWS.ID, *accepted.LinkedSampleID)
		if err != nil || sample == nil {
			t.Fatalf("linked sample lookup: sample=%v err=%v", sample, err)
		}
		if sample.Type != fx.sample.Type {
			t.Fatalf("linked sample type = %s, want %s", sample.Type, fx.sample.Type)
		}
		if sample.ProjectID != project.ID {
			t.Fatal("linked sample should belong to the linked project")
		}
	})

	t.Run("product_continuation creates a project only", func(t *testing.T) {
		svc, fx := newSupplyChainService(t)
		request, err := svc.Create(fx.senderCtx, fx.input(types.WorkflowProductContinuation))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		accepted, err := svc.Accept(fx.receiverCtx, request.ID)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if accepted.LinkedProjectID == nil {
			t.Fatal("expected linked project")
		}
		if accepted.LinkedSampleID != nil {
			t.Fatal("product_continuation should not materialize a sample")
		}
	})

	t.Run("analysis_only creates nothing", func(t *testing.T) {
		svc, fx := newSupplyChainService(t)
		request, err := svc.Create(fx.senderCtx, fx.input(types.WorkflowAnalysisOnly))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		accepted, err := svc.Accept(fx.receiverCtx, request.ID)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if accepted.LinkedProjectID != nil || accepted.LinkedSampleID != nil {
			t.Fatal("analysis_only should not materialize records")
		}
	})
}

func TestHandoffLifecycle(t *testing.T) {
	svc, fx := newSupplyChainService(t)
	request, err := svc.Create(fx.senderCtx, fx.input(types.WorkflowSupplyChain))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("sender cannot accept", func(t *testing.T) {
		if _, err := svc.Accept(fx.senderCtx, request.ID); !apierr.IsCode(err, apierr.CodeForbidden) {
			t.Fatalf("want forbidden, got %v", err)
		}
	})

	t.Run("advance before accept rejected", func(t *testing.T) {
		if _, err := svc.Advance(fx.receiverCtx, request.ID); !apierr.IsCode(err, apierr.CodeInvalidStateTransition) {
			t.Fatalf("want invalid_state_transition, got %v", err)
		}
	})

	t.Run("accept advance complete", func(t *testing.T) {
		if _, err := svc.Accept(fx.receiverCtx, request.ID); err != nil {
			t.Fatalf("accept: %v", err)
		}
		advanced, err := svc.Advance(fx.receiverCtx, request.ID)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if advanced.Status != types.HandoffStatusInProgress {
			t.Fatalf("status = %s, want in_progress", advanced.Status)
		}
		completed, err := svc.Complete(fx.receiverCtx, request.ID)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if completed.Status != types.HandoffStatusCompleted {
			t.Fatalf("status = %s, want completed", completed.Status)
		}
		if completed.ResolvedAt == nil {
			t.Fatal("completed handoff should record resolved_at")
		}
	})

	t.Run("reject only from pending", func(t *testing.T) {
		if _, err := svc.Reject(fx.receiverCtx, request.ID); !apierr.IsCode(err, apierr.CodeInvalidStateTransition) {
			t.Fatalf("want invalid_state_transition, got %v", err)
		}
	})
}

func TestHandoffReject(t *testing.T) {
	svc, fx := newSupplyChainService(t)
	request, err := svc.Create(fx.senderCtx, fx.input(types.WorkflowMaterialTransfer))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rejected, err := svc.Reject(fx.receiverCtx, request.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != types.HandoffStatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}
	if rejected.ResolvedAt == nil {
		t.Fatal("rejected handoff should record resolved_at")
	}
	if _, err := svc.Accept(fx.receiverCtx, request.ID); !apierr.IsCode(err, apierr.CodeInvalidStateTransition) {
		t.Fatalf("accept after reject: want invalid_state_transition, got %v", err)
	}
}
