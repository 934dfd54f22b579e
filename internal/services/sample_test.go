package services

import (
	"context"
	"testing"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/repos/testutil"
	"github.com/labtrace/labtrace-backend/internal/types"
)

func newSampleService(t *testing.T) (SampleService, *sampleFixture) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	user := testutil.SeedUser(t, ctx, tx, workspace.ID, "tech@lab.test", types.RoleMember)
	lab := testutil.SeedOrganization(t, ctx, tx, workspace.ID, "Lab", "laboratory")
	project := testutil.SeedProject(t, ctx, tx, workspace.ID, nil, lab.ID)
	sample := testutil.SeedSample(t, ctx, tx, workspace.ID, project.ID)

	svc := NewSampleService(tx, log,
		repos.NewSampleRepo(tx, log),
		repos.NewDerivedSampleRepo(tx, log),
		repos.NewProjectRepo(tx, log),
	)
	return svc, &sampleFixture{
		ctx:     ctxAs(user.ID, workspace.ID, user.Role),
		project: project,
		sample:  sample,
	}
}

type sampleFixture struct {
	ctx     context.Context
	project *types.Project
	sample  *types.Sample
}

func TestDerivedSampleSupersession(t *testing.T) {
	svc, fx := newSampleService(t)

	first, err := svc.CreateDerived(fx.ctx, CreateDerivedSampleInput{
		ParentSampleID: fx.sample.ID,
		Type:           "aliquot",
	})
	if err != nil {
		t.Fatalf("create first derived: %v", err)
	}
	if first.SupersedesID != nil || first.SupersededAt != nil {
		t.Fatalf("fresh derived sample should not reference a predecessor")
	}

	second, err := svc.CreateDerived(fx.ctx, CreateDerivedSampleInput{
		ParentSampleID: fx.sample.ID,
		SupersedesID:   &first.ID,
		Type:           "aliquot",
	})
	if err != nil {
		t.Fatalf("supersede: %v", err)
	}
	if second.SupersedesID == nil || *second.SupersedesID != first.ID {
		t.Fatalf("successor missing supersedes pointer")
	}

	// The predecessor is no longer live; racing supersession must fail.
	_, err = svc.CreateDerived(fx.ctx, CreateDerivedSampleInput{
		ParentSampleID: fx.sample.ID,
		SupersedesID:   &first.ID,
		Type:           "aliquot",
	})
	if !apierr.IsCode(err, apierr.CodeStaleSupersession) {
		t.Fatalf("want stale_supersession, got %v", err)
	}
}

func TestDerivedSampleLineageValidation(t *testing.T) {
	svc, fx := newSampleService(t)

	other, err := svc.Create(fx.ctx, CreateSampleInput{
		ProjectID: fx.project.ID,
		Type:      "serum",
	})
	if err != nil {
		t.Fatalf("create sample: %v", err)
	}
	fromOther, err := svc.CreateDerived(fx.ctx, CreateDerivedSampleInput{
		ParentSampleID: other.ID,
		Type:           "aliquot",
	})
	if err != nil {
		t.Fatalf("create derived: %v", err)
	}

	// Supersession cannot cross lineages.
	_, err = svc.CreateDerived(fx.ctx, CreateDerivedSampleInput{
		ParentSampleID: fx.sample.ID,
		SupersedesID:   &fromOther.ID,
		Type:           "aliquot",
	})
	if !apierr.IsCode(err, apierr.CodeInvalidData) {
		t.Fatalf("want invalid_data, got %v", err)
	}
}

func TestGetLineageWalksToRoot(t *testing.T) {
	svc, fx := newSampleService(t)

	first, err := svc.CreateDerived(fx.ctx, CreateDerivedSampleInput{
		ParentSampleID: fx.sample.ID,
		Type:           "aliquot",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.CreateDerived(fx.ctx, CreateDerivedSampleInput{
		ParentSampleID: fx.sample.ID,
		SupersedesID:   &first.ID,
		Type:           "aliquot",
	})
	if err != nil {
		t.Fatalf("supersede: %v", err)
	}

	lineage, err := svc.GetLineage(fx.ctx, second.ID)
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(lineage.Chain) != 2 {
		t.Fatalf("want 2 hops, got %d", len(lineage.Chain))
	}
	if lineage.Chain[0].ID != second.ID || lineage.Chain[1].ID != first.ID {
		t.Fatalf("chain out of order")
	}
	if lineage.Root == nil || lineage.Root.ID != fx.sample.ID {
		t.Fatalf("root not resolved")
	}
}
