package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/repos/testutil"
	"github.com/labtrace/labtrace-backend/internal/types"
)

func newAccessService(t *testing.T) (AccessService, *types.Workspace, *types.User) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	viewer := testutil.SeedUser(t, ctx, tx, workspace.ID, "viewer@lab.test", types.RoleViewer)

	svc := NewAccessService(tx, log, repos.NewAccessGrantRepo(tx, log), nil)
	return svc, workspace, viewer
}

func TestGrantLedger(t *testing.T) {
	svc, _, viewer := newAccessService(t)
	ctx := context.Background()
	objectID := uuid.New()

	grant, err := svc.GrantAccess(ctx, viewer.ID, "project", objectID, types.AccessLevelView)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if grant.Level != types.AccessLevelView {
		t.Fatalf("level = %s, want view", grant.Level)
	}

	t.Run("duplicate grant rejected", func(t *testing.T) {
		if _, err := svc.GrantAccess(ctx, viewer.ID, "project", objectID, types.AccessLevelEdit); !apierr.IsCode(err, apierr.CodeAlreadyExists) {
			t.Fatalf("want already_exists, got %v", err)
		}
	})

	t.Run("invalid level rejected", func(t *testing.T) {
		if _, err := svc.GrantAccess(ctx, viewer.ID, "batch", objectID, "owner"); !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("list returns the grant", func(t *testing.T) {
		grants, err := svc.ListGrants(ctx, "project", objectID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(grants) != 1 || grants[0].UserID != viewer.ID {
			t.Fatalf("grants = %+v, want single grant for %s", grants, viewer.ID)
		}
	})

	t.Run("update level", func(t *testing.T) {
		updated, err := svc.UpdateAccessLevel(ctx, viewer.ID, "project", objectID, types.AccessLevelEdit)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Level != types.AccessLevelEdit {
			t.Fatalf("level = %s, want edit", updated.Level)
		}
	})

	t.Run("revoke then revoke again", func(t *testing.T) {
		if err := svc.RevokeAccess(ctx, viewer.ID, "project", objectID); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if err := svc.RevokeAccess(ctx, viewer.ID, "project", objectID); !apierr.IsCode(err, apierr.CodeNotFound) {
			t.Fatalf("want not_found, got %v", err)
		}
	})
}

func TestGrantAccessConcurrentDuplicate(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.SetMaxOpenConns(0) })

	svc := NewAccessService(db, log, repos.NewAccessGrantRepo(db, log), nil)
	userID := uuid.New()
	objectID := uuid.New()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.GrantAccess(context.Background(), userID, "project", objectID, types.AccessLevelView)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if !apierr.IsCode(err, apierr.CodeAlreadyExists) {
			t.Fatalf("loser error = %v, want already_exists", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestResolveAccess(t *testing.T) {
	svc, workspace, viewer := newAccessService(t)
	objectID := uuid.New()

	t.Run("admin resolves to full", func(t *testing.T) {
		level, err := svc.ResolveAccess(ctxAs(uuid.New(), workspace.ID, types.RoleAdmin), "project", objectID)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if level != types.AccessLevelFull {
			t.Fatalf("level = %s, want full", level)
		}
	})

	t.Run("member resolves to edit", func(t *testing.T) {
		level, err := svc.ResolveAccess(ctxAs(uuid.New(), workspace.ID, types.RoleMember), "project", objectID)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if level != types.AccessLevelEdit {
			t.Fatalf("level = %s, want edit", level)
		}
	})

	t.Run("role shortcut stops at the workspace boundary", func(t *testing.T) {
		foreignWorkspace := uuid.New()
		_, err := svc.ResolveObjectAccess(ctxAs(uuid.New(), workspace.ID, types.RoleAdmin), foreignWorkspace, "project", objectID)
		if !apierr.IsCode(err, apierr.CodeForbidden) {
			t.Fatalf("want forbidden for foreign-workspace admin, got %v", err)
		}
	})

	t.Run("viewer without grant is forbidden", func(t *testing.T) {
		_, err := svc.ResolveAccess(ctxAs(viewer.ID, workspace.ID, types.RoleViewer), "project", objectID)
		if !apierr.IsCode(err, apierr.CodeForbidden) {
			t.Fatalf("want forbidden, got %v", err)
		}
	})

	t.Run("viewer with grant resolves to granted level", func(t *testing.T) {
		if _, err := svc.GrantAccess(context.Background(), viewer.ID, "project", objectID, types.AccessLevelView); err != nil {
			t.Fatalf("grant: %v", err)
		}
		level, err := svc.ResolveAccess(ctxAs(viewer.ID, workspace.ID, types.RoleViewer), "project", objectID)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if level != types.AccessLevelView {
			t.Fatalf("level = %s, want view", level)
		}
	})
}
