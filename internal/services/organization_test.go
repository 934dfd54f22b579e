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

func newOrganizationService(t *testing.T) (OrganizationService, context.Context, context.Context) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	admin := testutil.SeedUser(t, ctx, tx, workspace.ID, "admin@lab.test", types.RoleAdmin)
	member := testutil.SeedUser(t, ctx, tx, workspace.ID, "member@lab.test", types.RoleMember)

	svc := NewOrganizationService(tx, log, repos.NewOrganizationRepo(tx, log))
	return svc, ctxAs(admin.ID, workspace.ID, admin.Role), ctxAs(member.ID, workspace.ID, member.Role)
}

func TestOrganizationCreate(t *testing.T) {
	svc, adminCtx, memberCtx := newOrganizationService(t)

	org, err := svc.Create(adminCtx, CreateOrganizationInput{Name: "Central Lab", Type: types.OrgTypeLaboratory})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("non-admin forbidden", func(t *testing.T) {
		_, err := svc.Create(memberCtx, CreateOrganizationInput{Name: "Side Lab", Type: types.OrgTypeLaboratory})
		if !apierr.IsCode(err, apierr.CodeForbidden) {
			t.Fatalf("want forbidden, got %v", err)
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := svc.Create(adminCtx, CreateOrganizationInput{Name: "Misc", Type: "distillery"})
		if !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("child under parent", func(t *testing.T) {
		child, err := svc.Create(adminCtx, CreateOrganizationInput{
			Name:        "QC Wing",
			Type:        types.OrgTypeLaboratory,
			ParentOrgID: &org.ID,
		})
		if err != nil {
			t.Fatalf("create child: %v", err)
		}
		if child.ParentOrgID == nil || *child.ParentOrgID != org.ID {
			t.Fatalf("parent = %v, want %s", child.ParentOrgID, org.ID)
		}
	})

	t.Run("foreign parent rejected", func(t *testing.T) {
		stray := uuid.New()
		_, err := svc.Create(adminCtx, CreateOrganizationInput{
			Name:        "Orphan",
			Type:        types.OrgTypeLaboratory,
			ParentOrgID: &stray,
		})
		if !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})
}

func TestOrganizationUpdateDelete(t *testing.T) {
	svc, adminCtx, memberCtx := newOrganizationService(t)

	org, err := svc.Create(adminCtx, CreateOrganizationInput{Name: "Central Lab", Type: types.OrgTypeLaboratory})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("rename", func(t *testing.T) {
		renamed, err := svc.Update(adminCtx, org.ID, UpdateOrganizationInput{Name: testutil.PtrString("Central Laboratory")})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if renamed.Name != "Central Laboratory" {
			t.Fatalf("name = %s", renamed.Name)
		}
	})

	t.Run("empty update rejected", func(t *testing.T) {
		if _, err := svc.Update(adminCtx, org.ID, UpdateOrganizationInput{}); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("member cannot delete", func(t *testing.T) {
		if err := svc.Delete(memberCtx, org.ID); !apierr.IsCode(err, apierr.CodeForbidden) {
			t.Fatalf("want forbidden, got %v", err)
		}
	})

	t.Run("delete then delete again", func(t *testing.T) {
		if err := svc.Delete(adminCtx, org.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := svc.Delete(adminCtx, org.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
			t.Fatalf("want not_found, got %v", err)
		}
	})
}
