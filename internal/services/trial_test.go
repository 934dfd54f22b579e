package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/repos/testutil"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type trialFixture struct {
	tx      *gorm.DB
	ctx     context.Context
	project *types.Project
}

func newTrialService(t *testing.T) (TrialService, *trialFixture) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	user := testutil.SeedUser(t, ctx, tx, workspace.ID, "member@lab.test", types.RoleMember)
	lab := testutil.SeedOrganization(t, ctx, tx, workspace.ID, "Lab", "laboratory")
	project := testutil.SeedProject(t, ctx, tx, workspace.ID, nil, lab.ID)

	svc := NewTrialService(tx, log, repos.NewTrialRepo(tx, log), repos.NewProjectRepo(tx, log))
	return svc, &trialFixture{
		tx:      tx,
		ctx:     ctxAs(user.ID, workspace.ID, user.Role),
		project: project,
	}
}

func TestTrialCRUD(t *testing.T) {
	svc, fx := newTrialService(t)

	trial, err := svc.Create(fx.ctx, fx.project.ID, CreateTrialInput{Objective: "stability study"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if trial.Status != "planned" {
		t.Fatalf("status = %s, want planned", trial.Status)
	}

	t.Run("empty objective rejected", func(t *testing.T) {
		if _, err := svc.Create(fx.ctx, fx.project.ID, CreateTrialInput{}); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("foreign project reads as not found", func(t *testing.T) {
		if _, err := svc.Create(fx.ctx, uuid.New(), CreateTrialInput{Objective: "x"}); !apierr.IsCode(err, apierr.CodeNotFound) {
			t.Fatalf("want not_found, got %v", err)
		}
	})

	t.Run("status update validated", func(t *testing.T) {
		updated, err := svc.Update(fx.ctx, fx.project.ID, trial.ID, UpdateTrialInput{Status: testutil.PtrString("in_progress")})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Status != "in_progress" {
			t.Fatalf("status = %s, want in_progress", updated.Status)
		}
		if _, err := svc.Update(fx.ctx, fx.project.ID, trial.ID, UpdateTrialInput{Status: testutil.PtrString("paused")}); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data for unknown status, got %v", err)
		}
	})

	t.Run("delete then get not found", func(t *testing.T) {
		if err := svc.Delete(fx.ctx, fx.project.ID, trial.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := svc.Get(fx.ctx, fx.project.ID, trial.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
			t.Fatalf("want not_found, got %v", err)
		}
	})
}

func TestParameterTemplate(t *testing.T) {
	svc, fx := newTrialService(t)

	t.Run("missing template reads as not found", func(t *testing.T) {
		if _, err := svc.GetTemplate(fx.ctx, fx.project.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
			t.Fatalf("want not_found, got %v", err)
		}
	})

	first, err := svc.PutTemplate(fx.ctx, fx.project.ID, PutTemplateInput{Columns: []types.TemplateColumn{
		{Name: "temperature", Kind: "number", Unit: "C", Required: true},
		{Name: "operator", Kind: "string"},
	}})
	if err != nil {
		t.Fatalf("put template: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("version = %d, want 1", first.Version)
	}

	t.Run("overwrite bumps the version", func(t *testing.T) {
		second, err := svc.PutTemplate(fx.ctx, fx.project.ID, PutTemplateInput{Columns: []types.TemplateColumn{
			{Name: "temperature", Kind: "number", Unit: "C"},
			{Name: "humidity", Kind: "number", Unit: "%"},
		}})
		if err != nil {
			t.Fatalf("put template: %v", err)
		}
		if second.Version != 2 {
			t.Fatalf("version = %d, want 2", second.Version)
		}
		current, err := svc.GetTemplate(fx.ctx, fx.project.ID)
		if err != nil {
			t.Fatalf("get template: %v", err)
		}
		if current.Version != 2 {
			t.Fatalf("stored version = %d, want 2", current.Version)
		}
	})

	t.Run("duplicate column rejected", func(t *testing.T) {
		_, err := svc.PutTemplate(fx.ctx, fx.project.ID, PutTemplateInput{Columns: []types.TemplateColumn{
			{Name: "temperature", Kind: "number"},
			{Name: "temperature", Kind: "string"},
		}})
		if !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("unknown column kind rejected", func(t *testing.T) {
		_, err := svc.PutTemplate(fx.ctx, fx.project.ID, PutTemplateInput{Columns: []types.TemplateColumn{
			{Name: "notes", Kind: "blob"},
		}})
		if !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("empty column list rejected", func(t *testing.T) {
		if _, err := svc.PutTemplate(fx.ctx, fx.project.ID, PutTemplateInput{}); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})
}
