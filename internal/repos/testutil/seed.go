package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/types"
)

func SeedWorkspace(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Workspace {
	tb.Helper()
	w := &types.Workspace{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed workspace: %v", err)
	}
	return w
}

func SeedOrganization(tb testing.TB, ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, name, orgType string) *types.Organization {
	tb.Helper()
	o := &types.Organization{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        name,
		Type:        orgType,
		ContactInfo: datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed organization: %v", err)
	}
	return o
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, email, role string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Email:       email,
		Password:    "pw",
		FirstName:   "A",
		LastName:    "B",
		Role:        role,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, clientOrgID *uuid.UUID, executingOrgID uuid.UUID) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:             uuid.New(),
		WorkspaceID:    workspaceID,
		Name:           "project",
		ClientOrgID:    clientOrgID,
		ExecutingOrgID: executingOrgID,
		WorkflowMode:   types.WorkflowModeAnalysisFirst,
		Status:         types.ProjectStatusActive,
	}
	if clientOrgID == nil {
		external := "External Client"
		p.ExternalClientName = &external
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedSample(tb testing.TB, ctx context.Context, tx *gorm.DB, workspaceID, projectID uuid.UUID) *types.Sample {
	tb.Helper()
	s := &types.Sample{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		ProjectID:   projectID,
		Type:        "plasma",
		Metadata:    datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed sample: %v", err)
	}
	return s
}

func SeedBatch(tb testing.TB, ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, status string) *types.Batch {
	tb.Helper()
	b := &types.Batch{
		ID:            uuid.New(),
		WorkspaceID:   workspaceID,
		Name:          "batch",
		Status:        status,
		ExecutionMode: types.BatchExecutionInternal,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed batch: %v", err)
	}
	return b
}

func SeedAnalysisType(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.AnalysisType {
	tb.Helper()
	at := &types.AnalysisType{
		ID:   uuid.New(),
		Name: name,
		Unit: "mg/L",
	}
	if err := tx.WithContext(ctx).Create(at).Error; err != nil {
		tb.Fatalf("seed analysis type: %v", err)
	}
	return at
}

func SeedAnalysis(tb testing.TB, ctx context.Context, tx *gorm.DB, workspaceID, batchID, sampleID, typeID uuid.UUID, status string, authoritative bool) *types.Analysis {
	tb.Helper()
	a := &types.Analysis{
		ID:              uuid.New(),
		WorkspaceID:     workspaceID,
		BatchID:         batchID,
		SampleID:        sampleID,
		TypeID:          typeID,
		Status:          status,
		IsAuthoritative: authoritative,
		ResultData:      datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed analysis: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrString(v string) *string { return &v }
