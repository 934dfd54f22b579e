package services

import (
	"context"
	"testing"
	"time"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/repos/testutil"
	"github.com/labtrace/labtrace-backend/internal/requestdata"
	"github.com/labtrace/labtrace-backend/internal/types"
)

func newAuthService(t *testing.T) AuthService {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	return NewAuthService(tx, log,
		repos.NewUserRepo(tx, log),
		repos.NewUserTokenRepo(tx, log),
		repos.NewWorkspaceRepo(tx, log),
		"test-secret",
		time.Hour,
		24*time.Hour,
	)
}

func TestRegisterBootstrapsWorkspaceAdmin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, RegisterInput{
		WorkspaceName: "Acme Labs",
		Email:         "Founder@Acme.test",
		Password:      "hunter22",
		FirstName:     "Fo",
		LastName:      "Under",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != types.RoleAdmin {
		t.Fatalf("role = %s, want admin", user.Role)
	}
	if user.Email != "founder@acme.test" {
		t.Fatalf("email = %s, want normalized lowercase", user.Email)
	}
	if user.Password == "hunter22" {
		t.Fatal("password stored in plaintext")
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := svc.RegisterUser(ctx, RegisterInput{
			WorkspaceName: "Other Labs",
			Email:         "founder@acme.test",
			Password:      "hunter22",
		})
		if !apierr.IsCode(err, apierr.CodeAlreadyExists) {
			t.Fatalf("want already_exists, got %v", err)
		}
	})

	t.Run("missing workspace name rejected", func(t *testing.T) {
		_, err := svc.RegisterUser(ctx, RegisterInput{Email: "x@acme.test", Password: "pw"})
		if !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})
}

func TestLoginAndTokenLifecycle(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, RegisterInput{
		WorkspaceName: "Acme Labs",
		Email:         "lead@acme.test",
		Password:      "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("wrong password unauthorized", func(t *testing.T) {
		_, _, err := svc.LoginUser(ctx, "lead@acme.test", "wrong")
		if !apierr.IsCode(err, apierr.CodeUnauthorized) {
			t.Fatalf("want unauthorized, got %v", err)
		}
	})

	access, refresh, err := svc.LoginUser(ctx, "lead@acme.test", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("login returned empty token pair")
	}

	t.Run("access token resolves tenant identity", func(t *testing.T) {
		authed, err := svc.SetContextFromToken(ctx, access)
		if err != nil {
			t.Fatalf("set context: %v", err)
		}
		rd := requestdata.GetRequestData(authed)
		if rd == nil {
			t.Fatal("no request data in context")
		}
		if rd.UserID != user.ID {
			t.Fatalf("user id = %s, want %s", rd.UserID, user.ID)
		}
		if rd.WorkspaceID != user.WorkspaceID {
			t.Fatalf("workspace id = %s, want %s", rd.WorkspaceID, user.WorkspaceID)
		}
		if rd.Role != types.RoleAdmin {
			t.Fatalf("role = %s, want admin", rd.Role)
		}
		if rd.RefreshToken != refresh {
			t.Fatalf("refresh token not attached to session context")
		}
	})

	t.Run("garbage token unauthorized", func(t *testing.T) {
		if _, err := svc.SetContextFromToken(ctx, "not-a-jwt"); !apierr.IsCode(err, apierr.CodeUnauthorized) {
			t.Fatalf("want unauthorized, got %v", err)
		}
	})

	t.Run("refresh rotates the token pair", func(t *testing.T) {
		authed, err := svc.SetContextFromToken(ctx, access)
		if err != nil {
			t.Fatalf("set context: %v", err)
		}
		newAccess, newRefresh, err := svc.RefreshUser(authed)
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if newRefresh == refresh {
			t.Fatal("refresh token was not rotated")
		}
		if newAccess == "" {
			t.Fatal("refresh returned empty access token")
		}

		// The old refresh token is single-use.
		stale := requestdata.WithRequestData(ctx, &requestdata.RequestData{
			UserID:       user.ID,
			WorkspaceID:  user.WorkspaceID,
			Role:         user.Role,
			RefreshToken: refresh,
		})
		if _, _, err := svc.RefreshUser(stale); !apierr.IsCode(err, apierr.CodeUnauthorized) {
			t.Fatalf("want unauthorized for rotated token, got %v", err)
		}

		access, refresh = newAccess, newRefresh
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		authed, err := svc.SetContextFromToken(ctx, access)
		if err != nil {
			t.Fatalf("set context: %v", err)
		}
		if err := svc.LogoutUser(authed); err != nil {
			t.Fatalf("logout: %v", err)
		}
		stale := requestdata.WithRequestData(ctx, &requestdata.RequestData{
			UserID:       user.ID,
			WorkspaceID:  user.WorkspaceID,
			Role:         user.Role,
			RefreshToken: refresh,
		})
		if _, _, err := svc.RefreshUser(stale); !apierr.IsCode(err, apierr.CodeUnauthorized) {
			t.Fatalf("want unauthorized after logout, got %v", err)
		}
	})
}
