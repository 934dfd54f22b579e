package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/repos/testutil"
	"github.com/labtrace/labtrace-backend/internal/types"
	"gorm.io/gorm"
)

type analysisFixture struct {
	ctx       context.Context
	tx        *gorm.DB
	workspace *types.Workspace
	batch     *types.Batch
	sample    *types.Sample
	potency   *types.AnalysisType
	moisture  *types.AnalysisType
}

func newAnalysisService(t *testing.T, typePrefix string) (AnalysisService, *analysisFixture) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	workspace := testutil.SeedWorkspace(t, ctx, tx, "ws")
	user := testutil.SeedUser(t, ctx, tx, workspace.ID, typePrefix+"@lab.test", types.RoleMember)
	lab := testutil.SeedOrganization(t, ctx, tx, workspace.ID, "Lab", "laboratory")
	project := testutil.SeedProject(t, ctx, tx, workspace.ID, nil, lab.ID)
	sample := testutil.SeedSample(t, ctx, tx, workspace.ID, project.ID)
	batch := testutil.SeedBatch(t, ctx, tx, workspace.ID, types.BatchStatusInProgress)
	potency := testutil.SeedAnalysisType(t, ctx, tx, typePrefix+"-potency")
	moisture := testutil.SeedAnalysisType(t, ctx, tx, typePrefix+"-moisture")

	svc := NewAnalysisService(tx, log,
		repos.NewAnalysisRepo(tx, log),
		repos.NewAnalysisTypeRepo(tx, log),
		repos.NewBatchRepo(tx, log),
		repos.NewSampleRepo(tx, log),
		nil,
	)
	return svc, &analysisFixture{
		ctx:       ctxAs(user.ID, workspace.ID, user.Role),
		tx:        tx,
		workspace: workspace,
		batch:     batch,
		sample:    sample,
		potency:   potency,
		moisture:  moisture,
	}
}

func TestAnalysisAuthority(t *testing.T) {
	svc, fx := newAnalysisService(t, "auth")

	first, err := svc.Create(fx.ctx, CreateAnalysisInput{
		BatchID:  fx.batch.ID,
		SampleID: fx.sample.ID,
		TypeID:   fx.potency.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.IsAuthoritative {
		t.Fatalf("first result must be authoritative")
	}

	t.Run("duplicate non-superseding rejected", func(t *testing.T) {
		_, err := svc.Create(fx.ctx, CreateAnalysisInput{
			BatchID:  fx.batch.ID,
			SampleID: fx.sample.ID,
			TypeID:   fx.potency.ID,
		})
		if !apierr.IsCode(err, apierr.CodeAlreadyExists) {
			t.Fatalf("want already_exists, got %v", err)
		}
	})

	t.Run("other type unaffected", func(t *testing.T) {
		if _, err := svc.Create(fx.ctx, CreateAnalysisInput{
			BatchID:  fx.batch.ID,
			SampleID: fx.sample.ID,
			TypeID:   fx.moisture.ID,
		}); err != nil {
			t.Fatalf("create second type: %v", err)
		}
	})

	t.Run("supersession moves the flag", func(t *testing.T) {
		successor, err := svc.Create(fx.ctx, CreateAnalysisInput{
			BatchID:      fx.batch.ID,
			SampleID:     fx.sample.ID,
			TypeID:       fx.potency.ID,
			SupersedesID: &first.ID,
		})
		if err != nil {
			t.Fatalf("supersede: %v", err)
		}
		if !successor.IsAuthoritative {
			t.Fatalf("successor must be authoritative")
		}
		predecessor, err := svc.Get(fx.ctx, first.ID)
		if err != nil {
			t.Fatalf("get predecessor: %v", err)
		}
		if predecessor.IsAuthoritative {
			t.Fatalf("predecessor flag not cleared")
		}

		// Superseding the now-stale predecessor again loses the race.
		_, err = svc.Create(fx.ctx, CreateAnalysisInput{
			BatchID:      fx.batch.ID,
			SampleID:     fx.sample.ID,
			TypeID:       fx.potency.ID,
			SupersedesID: &first.ID,
		})
		if !apierr.IsCode(err, apierr.CodeStaleSupersession) {
			t.Fatalf("want stale_supersession, got %v", err)
		}
	})
}

func TestAnalysisStatusUpdates(t *testing.T) {
	svc, fx := newAnalysisService(t, "status")

	analysis, err := svc.Create(fx.ctx, CreateAnalysisInput{
		BatchID:  fx.batch.ID,
		SampleID: fx.sample.ID,
		TypeID:   fx.potency.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateStatus(fx.ctx, analysis.ID, types.AnalysisStatusCompleted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != types.AnalysisStatusCompleted {
		t.Fatalf("status = %s", updated.Status)
	}

	// Terminal analyses are frozen.
	if _, err := svc.UpdateStatus(fx.ctx, analysis.ID, types.AnalysisStatusInProgress); !apierr.IsCode(err, apierr.CodeInvalidStateTransition) {
		t.Fatalf("want invalid_state_transition, got %v", err)
	}

	if _, err := svc.UpdateStatus(fx.ctx, analysis.ID, "archived"); !apierr.IsCode(err, apierr.CodeInvalidData) {
		t.Fatalf("want invalid_data, got %v", err)
	}
}

func TestAnalysisCreateValidation(t *testing.T) {
	svc, fx := newAnalysisService(t, "valid")

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := svc.Create(fx.ctx, CreateAnalysisInput{
			BatchID:  fx.batch.ID,
			SampleID: fx.sample.ID,
			TypeID:   fx.sample.ID,
		})
		if !apierr.IsCode(err, apierr.CodeInvalidData) {
			t.Fatalf("want invalid_data, got %v", err)
		}
	})

	t.Run("terminal batch rejected", func(t *testing.T) {
		failed := testutil.SeedBatch(t, context.Background(), fx.tx, fx.workspace.ID, types.BatchStatusFailed)
		_, err := svc.Create(fx.ctx, CreateAnalysisInput{
			BatchID:  failed.ID,
			SampleID: fx.sample.ID,
			TypeID:   fx.potency.ID,
		})
		if !apierr.IsCode(err, apierr.CodeInvalidStateTransition) {
			t.Fatalf("want invalid_state_transition, got %v", err)
		}
	})
}

func TestAnalysisSupersessionConcurrent(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.SetMaxOpenConns(0) })

	workspace := testutil.SeedWorkspace(t, ctx, db, "race-ws")
	user := testutil.SeedUser(t, ctx, db, workspace.ID, "race@lab.test", types.RoleMember)
	lab := testutil.SeedOrganization(t, ctx, db, workspace.ID, "Race Lab", "laboratory")
	project := testutil.SeedProject(t, ctx, db, workspace.ID, nil, lab.ID)
	sample := testutil.SeedSample(t, ctx, db, workspace.ID, project.ID)
	batch := testutil.SeedBatch(t, ctx, db, workspace.ID, types.BatchStatusInProgress)
	potency := testutil.SeedAnalysisType(t, ctx, db, "race-potency")

	svc := NewAnalysisService(db, log,
		repos.NewAnalysisRepo(db, log),
		repos.NewAnalysisTypeRepo(db, log),
		repos.NewBatchRepo(db, log),
		repos.NewSampleRepo(db, log),
		nil,
	)
	callerCtx := ctxAs(user.ID, workspace.ID, user.Role)

	first, err := svc.Create(callerCtx, CreateAnalysisInput{
		BatchID:  batch.ID,
		SampleID: sample.ID,
		TypeID:   potency.ID,
	})
	if err != nil {
		t.Fatalf("create predecessor: %v", err)
	}

	// Two supersessions racing for the same predecessor; the guarded flag
	// clear admits exactly one.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(callerCtx, CreateAnalysisInput{
				BatchID:      batch.ID,
				SampleID:     sample.ID,
				TypeID:       potency.ID,
				SupersedesID: &first.ID,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if !apierr.IsCode(err, apierr.CodeStaleSupersession) {
			t.Fatalf("loser error = %v, want stale_supersession", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

// memoryBucket is an in-memory stand-in for report storage.
type memoryBucket struct {
	objects map[string][]byte
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}}
}

func (mb *memoryBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	mb.objects[key] = data
	return nil
}

func (mb *memoryBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := mb.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %q", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (mb *memoryBucket) DeleteFile(ctx context.Context, key string) error {
	delete(mb.objects, key)
	return nil
}

func (mb *memoryBucket) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func TestAnalysisReportLifecycle(t *testing.T) {
	_, fx := newAnalysisService(t, "report")
	log := testutil.Logger(t)
	bucket := newMemoryBucket()
	svc := NewAnalysisService(fx.tx, log,
		repos.NewAnalysisRepo(fx.tx, log),
		repos.NewAnalysisTypeRepo(fx.tx, log),
		repos.NewBatchRepo(fx.tx, log),
		repos.NewSampleRepo(fx.tx, log),
		bucket,
	)

	analysis, err := svc.Create(fx.ctx, CreateAnalysisInput{BatchID: fx.batch.ID, SampleID: fx.sample.ID, TypeID: fx.potency.ID})
	if err != nil {
		t.Fatalf("create analysis: %v", err)
	}
	if _, err := svc.UpdateStatus(fx.ctx, analysis.ID, types.AnalysisStatusCompleted); err != nil {
		t.Fatalf("complete analysis: %v", err)
	}

	if _, _, err := svc.ReportFile(fx.ctx, analysis.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("expected not_found before a report is attached, got %v", err)
	}
	if _, err := svc.DetachReport(fx.ctx, analysis.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("expected not_found detaching a missing report, got %v", err)
	}

	attached, err := svc.AttachReport(fx.ctx, analysis.ID, "potency.pdf", strings.NewReader("certified result"))
	if err != nil {
		t.Fatalf("attach report: %v", err)
	}
	if attached.ReportKey == nil || attached.ReportURL == nil {
		t.Fatal("expected report key and url after attach")
	}

	file, filename, err := svc.ReportFile(fx.ctx, analysis.ID)
	if err != nil {
		t.Fatalf("download report: %v", err)
	}
	body, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if filename != "potency.pdf" {
		t.Fatalf("expected filename potency.pdf, got %q", filename)
	}
	if string(body) != "certified result" {
		t.Fatalf("report content mismatch: %q", body)
	}

	detached, err := svc.DetachReport(fx.ctx, analysis.ID)
	if err != nil {
		t.Fatalf("detach report: %v", err)
	}
	if detached.ReportKey != nil || detached.ReportURL != nil {
		t.Fatal("expected report fields cleared after detach")
	}
	if len(bucket.objects) != 0 {
		t.Fatalf("expected bucket emptied, still holds %d objects", len(bucket.objects))
	}
	if _, _, err := svc.ReportFile(fx.ctx, analysis.ID); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("expected not_found after detach, got %v", err)
	}
}

func TestAnalysisReportStorageUnconfigured(t *testing.T) {
	svc, fx := newAnalysisService(t, "nobucket")

	analysis, err := svc.Create(fx.ctx, CreateAnalysisInput{BatchID: fx.batch.ID, SampleID: fx.sample.ID, TypeID: fx.potency.ID})
	if err != nil {
		t.Fatalf("create analysis: %v", err)
	}
	if _, err := svc.UpdateStatus(fx.ctx, analysis.ID, types.AnalysisStatusCompleted); err != nil {
		t.Fatalf("complete analysis: %v", err)
	}
	if _, err := svc.AttachReport(fx.ctx, analysis.ID, "a.pdf", strings.NewReader("x")); !apierr.IsCode(err, apierr.CodeInternal) {
		t.Fatalf("expected internal when storage is unconfigured, got %v", err)
	}
}
