package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/repos/testutil"
	"github.com/labtrace/labtrace-backend/internal/types"
)

func TestBatchTransitions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	user := testutil.SeedUser(t, ctx, tx, workspace.ID, "ops@lab.test", types.RoleMember)
	callerCtx := ctxAs(user.ID, workspace.ID, user.Role)

	svc := NewBatchService(tx, log,
		repos.NewBatchRepo(tx, log),
		repos.NewSampleRepo(tx, log),
		repos.NewAnalysisRepo(tx, log),
	)

	tests := []struct {
		name     string
		from     string
		to       string
		wantCode string
	}{
		{"forward one rank", types.BatchStatusCreated, types.BatchStatusInProgress, ""},
		{"forward skipping ranks", types.BatchStatusCreated, types.BatchStatusSent, ""},
		{"backward rejected", types.BatchStatusReady, types.BatchStatusInProgress, apierr.CodeInvalidStateTransition},
		{"same status rejected", types.BatchStatusReady, types.BatchStatusReady, apierr.CodeInvalidStateTransition},
		{"failed from non-terminal", types.BatchStatusSent, types.BatchStatusFailed, ""},
		{"unknown status rejected", types.BatchStatusCreated, "archived", apierr.CodeInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := testutil.SeedBatch(t, ctx, tx, workspace.ID, tt.from)
			got, err := svc.Transition(callerCtx, batch.ID, tt.to)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("transition: %v", err)
				}
				if got.Status != tt.to {
					t.Fatalf("status = %s, want %s", got.Status, tt.to)
				}
				return
			}
			if !apierr.IsCode(err, tt.wantCode) {
				t.Fatalf("want %s, got %v", tt.wantCode, err)
			}
		})
	}

	t.Run("terminal batch frozen", func(t *testing.T) {
		batch := testutil.SeedBatch(t, ctx, tx, workspace.ID, types.BatchStatusFailed)
		_, err := svc.Transition(callerCtx, batch.ID, types.BatchStatusInProgress)
		if !apierr.IsCode(err, apierr.CodeInvalidStateTransition) {
			t.Fatalf("want invalid_state_transition, got %v", err)
		}
	})
}

func TestBatchComplete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	user := testutil.SeedUser(t, ctx, tx, workspace.ID, "ops2@lab.test", types.RoleMember)
	lab := testutil.SeedOrganization(t, ctx, tx, workspace.ID, "Lab", "laboratory")
	project := testutil.SeedProject(t, ctx, tx, workspace.ID, nil, lab.ID)
	sample := testutil.SeedSample(t, ctx, tx, workspace.ID, project.ID)
	potency := testutil.SeedAnalysisType(t, ctx, tx, "potency-complete")
	callerCtx := ctxAs(user.ID, workspace.ID, user.Role)

	svc := NewBatchService(tx, log,
		repos.NewBatchRepo(tx, log),
		repos.NewSampleRepo(tx, log),
		repos.NewAnalysisRepo(tx, log),
	)

	t.Run("blocked while analyses pending", func(t *testing.T) {
		batch := testutil.SeedBatch(t, ctx, tx, workspace.ID, types.BatchStatusSent)
		testutil.SeedAnalysis(t, ctx, tx, workspace.ID, batch.ID, sample.ID, potency.ID, types.AnalysisStatusPending, true)
		_, err := svc.Complete(callerCtx, batch.ID)
		if !apierr.IsCode(err, apierr.CodeInvalidStateTransition) {
			t.Fatalf("want invalid_state_transition, got %v", err)
		}
	})

	t.Run("succeeds once analyses terminal", func(t *testing.T) {
		batch := testutil.SeedBatch(t, ctx, tx, workspace.ID, types.BatchStatusSent)
		sample2 := testutil.SeedSample(t, ctx, tx, workspace.ID, project.ID)
		testutil.SeedAnalysis(t, ctx, tx, workspace.ID, batch.ID, sample2.ID, potency.ID, types.AnalysisStatusCompleted, true)
		got, err := svc.Complete(callerCtx, batch.ID)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if got.Status != types.BatchStatusCompleted {
			t.Fatalf("status = %s", got.Status)
		}
	})
}

func TestBatchCreateWithSamples(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	user := testutil.SeedUser(t, ctx, tx, workspace.ID, "ops3@lab.test", types.RoleMember)
	lab := testutil.SeedOrganization(t, ctx, tx, workspace.ID, "Lab", "laboratory")
	project := testutil.SeedProject(t, ctx, tx, workspace.ID, nil, lab.ID)
	sample := testutil.SeedSample(t, ctx, tx, workspace.ID, project.ID)
	callerCtx := ctxAs(user.ID, workspace.ID, user.Role)

	svc := NewBatchService(tx, log,
		repos.NewBatchRepo(tx, log),
		repos.NewSampleRepo(tx, log),
		repos.NewAnalysisRepo(tx, log),
	)

	t.Run("links initial samples", func(t *testing.T) {
		batch, err := svc.Create(callerCtx, CreateBatchInput{
			Name:      "run 12",
			SampleIDs: []uuid.UUID{sample.ID},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids, err := svc.ListSampleIDs(callerCtx, batch.ID)
		if err != nil {
			t.Fatalf("list samples: %v", err)
		}
		if len(ids) != 1 || ids[0] != sample.ID {
			t.Fatalf("sample link missing: %v", ids)
		}
	})

	t.Run("rejects unknown samples", func(t *testing.T) {
		_, err := svc.Create(callerCtx, CreateBatchInput{
			Name:      "run 13",
			SampleIDs: []uuid.UUID{uuid.New()},
		})
		if !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})
}
