package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/clients/gcp"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type CreateAnalysisInput struct {
	BatchID      uuid.UUID      `json:"batch_id"`
	SampleID     uuid.UUID      `json:"sample_id"`
	TypeID       uuid.UUID      `json:"type_id"`
	SupersedesID *uuid.UUID     `json:"supersedes_id,omitempty"`
	ResultData   datatypes.JSON `json:"result_data,omitempty"`
}

// analysisTypeCatalog mirrors the seed file layout.
type analysisTypeCatalog struct {
	Types []struct {
		Name string `yaml:"name"`
		Unit string `yaml:"unit"`
	} `yaml:"types"`
}

type AnalysisService interface {
	Create(ctx context.Context, input CreateAnalysisInput) (*types.Analysis, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Analysis, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*types.Analysis, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*types.Analysis, error)
	AttachReport(ctx context.Context, id uuid.UUID, filename string, file io.Reader) (*types.Analysis, error)
	ReportFile(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error)
	DetachReport(ctx context.Context, id uuid.UUID) (*types.Analysis, error)
	ListTypes(ctx context.Context) ([]*types.AnalysisType, error)
	SeedTypes(ctx context.Context, path string) error
}

type analysisService struct {
	db           *gorm.DB
	log          *logger.Logger
	analysisRepo repos.AnalysisRepo
	typeRepo     repos.AnalysisTypeRepo
	batchRepo    repos.BatchRepo
	sampleRepo   repos.SampleRepo
	bucket       gcp.BucketService
}

func NewAnalysisService(db *gorm.DB, log *logger.Logger, analysisRepo repos.AnalysisRepo, typeRepo repos.AnalysisTypeRepo, batchRepo repos.BatchRepo, sampleRepo repos.SampleRepo, bucket gcp.BucketService) AnalysisService {
	serviceLog := log.With("service", "AnalysisService")
	return &analysisService{
		db:           db,
		log:          serviceLog,
		analysisRepo: analysisRepo,
		typeRepo:     typeRepo,
		batchRepo:    batchRepo,
		sampleRepo:   sampleRepo,
		bucket:       bucket,
	}
}

// Create inserts an analysis as the authoritative result for its
// (sample, type) pair. When superseding, clearing the predecessor's flag
// and inserting the successor happen in one transaction; the clear is a
// guarded UPDATE so two racing supersessions cannot both win.
func (as *analysisService) Create(ctx context.Context, input CreateAnalysisInput) (*types.Analysis, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not create analyses")
	}

	batch, err := as.batchRepo.GetByID(ctx, nil, rd.WorkspaceID, input.BatchID)
	if err != nil {
		return nil, storeErr("create analysis", err)
	}
	if batch == nil {
		return nil, apierr.NotFound("batch not found")
	}
	if types.BatchStatusTerminal(batch.Status) {
		return nil, apierr.InvalidStateTransition("batch %s is %s", batch.ID, batch.Status)
	}
	sample, err := as.sampleRepo.GetByID(ctx, nil, rd.WorkspaceID, input.SampleID)
	if err != nil {
		return nil, storeErr("create analysis", err)
	}
	if sample == nil {
		return nil, apierr.NotFound("sample not found")
	}
	analysisTypes, err := as.typeRepo.GetByIDs(ctx, nil, []uuid.UUID{input.TypeID})
	if err != nil {
		return nil, storeErr("create analysis", err)
	}
	if len(analysisTypes) == 0 {
		return nil, apierr.InvalidData("unknown analysis type")
	}

	var analysis *types.Analysis
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := as.analysisRepo.GetAuthoritative(ctx, tx, input.SampleID, input.TypeID)
		if err != nil {
			return storeErr("create analysis", err)
		}
		if input.SupersedesID == nil {
			if current != nil {
				return apierr.AlreadyExists("authoritative analysis already exists for sample %s", input.SampleID)
			}
		} else {
			if current == nil || current.ID != *input.SupersedesID {
				return apierr.StaleSupersession("analysis %s is not the authoritative result", *input.SupersedesID)
			}
			rows, err := as.analysisRepo.ClearAuthoritativeGuarded(ctx, tx, current.ID)
			if err != nil {
				return storeErr("create analysis", err)
			}
			if rows == 0 {
				return apierr.StaleSupersession("analysis %s was superseded concurrently", current.ID)
			}
		}
		created, err := as.analysisRepo.Create(ctx, tx, []*types.Analysis{{
			ID:              uuid.New(),
			WorkspaceID:     rd.WorkspaceID,
			BatchID:         input.BatchID,
			SampleID:        input.SampleID,
			TypeID:          input.TypeID,
			Status:          types.AnalysisStatusPending,
			IsAuthoritative: true,
			SupersedesID:    input.SupersedesID,
			ResultData:      input.ResultData,
		}})
		if err != nil {
			return storeErr("create analysis", err)
		}
		analysis = created[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func (as *analysisService) Get(ctx context.Context, id uuid.UUID) (*types.Analysis, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	analysis, err := as.analysisRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("get analysis", err)
	}
	if analysis == nil {
		return nil, apierr.NotFound("analysis not found")
	}
	return analysis, nil
}

func (as *analysisService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*types.Analysis, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := as.batchRepo.GetByID(ctx, nil, rd.WorkspaceID, batchID)
	if err != nil {
		return nil, storeErr("list analyses", err)
	}
	if batch == nil {
		return nil, apierr.NotFound("batch not found")
	}
	analyses, err := as.analysisRepo.ListByBatch(ctx, nil, rd.WorkspaceID, batchID)
	if err != nil {
		return nil, storeErr("list analyses", err)
	}
	return analyses, nil
}

func (as *analysisService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*types.Analysis, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not update analyses")
	}
	switch status {
	case types.AnalysisStatusPending, types.AnalysisStatusInProgress, types.AnalysisStatusCompleted, types.AnalysisStatusFailed:
	default:
		return nil, apierr.InvalidData("invalid analysis status %q", status)
	}

	analysis, err := as.analysisRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("update analysis status", err)
	}
	if analysis == nil {
		return nil, apierr.NotFound("analysis not found")
	}
	if types.AnalysisStatusTerminal(analysis.Status) {
		return nil, apierr.InvalidStateTransition("analysis %s is already %s", analysis.ID, analysis.Status)
	}

	rows, err := as.analysisRepo.UpdateStatus(ctx, nil, rd.WorkspaceID, id, status)
	if err != nil {
		return nil, storeErr("update analysis status", err)
	}
	if rows == 0 {
		return nil, apierr.NotFound("analysis not found")
	}
	analysis.Status = status
	return analysis, nil
}

// AttachReport uploads a report file for a terminal analysis and records
// its object key and public URL.
func (as *analysisService) AttachReport(ctx context.Context, id uuid.UUID, filename string, file io.Reader) (*types.Analysis, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not attach reports")
	}
	if as.bucket == nil {
		return nil, apierr.Internal(fmt.Errorf("report storage is not configured"))
	}
	if filename == "" {
		return nil, apierr.InvalidData("report filename is required")
	}

	analysis, err := as.analysisRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("attach report", err)
	}
	if analysis == nil {
		return nil, apierr.NotFound("analysis not found")
	}
	if !types.AnalysisStatusTerminal(analysis.Status) {
		return nil, apierr.InvalidStateTransition("analysis %s is not terminal", analysis.ID)
	}

	key := fmt.Sprintf("reports/%s/%s/%s", rd.WorkspaceID, analysis.ID, filename)
	if err := as.bucket.UploadFile(ctx, key, file); err != nil {
		return nil, apierr.Internal(fmt.Errorf("upload report: %w", err))
	}
	url := as.bucket.GetPublicURL(key)

	rows, err := as.analysisRepo.SetReport(ctx, nil, rd.WorkspaceID, id, key, url)
	if err != nil {
		return nil, storeErr("attach report", err)
	}
	if rows == 0 {
		return nil, apierr.NotFound("analysis not found")
	}
	analysis.ReportKey = &key
	analysis.ReportURL = &url
	return analysis, nil
}

// ReportFile streams the stored report for an analysis. The second return
// value is the filename recorded at attach time.
func (as *analysisService) ReportFile(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, "", err
	}
	analysis, err := as.analysisRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, "", storeErr("download report", err)
	}
	if analysis == nil {
		return nil, "", apierr.NotFound("analysis not found")
	}
	if analysis.ReportKey == nil {
		return nil, "", apierr.NotFound("analysis %s has no report", analysis.ID)
	}
	if as.bucket == nil {
		return nil, "", apierr.Internal(fmt.Errorf("report storage is not configured"))
	}
	file, err := as.bucket.DownloadFile(ctx, *analysis.ReportKey)
	if err != nil {
		return nil, "", apierr.Internal(fmt.Errorf("download report: %w", err))
	}
	return file, path.Base(*analysis.ReportKey), nil
}

// DetachReport removes a report from both the bucket and the analysis row.
func (as *analysisService) DetachReport(ctx context.Context, id uuid.UUID) (*types.Analysis, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not detach reports")
	}
	analysis, err := as.analysisRepo.GetByID(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("detach report", err)
	}
	if analysis == nil {
		return nil, apierr.NotFound("analysis not found")
	}
	if analysis.ReportKey == nil {
		return nil, apierr.NotFound("analysis %s has no report", analysis.ID)
	}
	if as.bucket == nil {
		return nil, apierr.Internal(fmt.Errorf("report storage is not configured"))
	}
	if err := as.bucket.DeleteFile(ctx, *analysis.ReportKey); err != nil {
		return nil, apierr.Internal(fmt.Errorf("delete report: %w", err))
	}
	rows, err := as.analysisRepo.ClearReport(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("detach report", err)
	}
	if rows == 0 {
		return nil, apierr.NotFound("analysis not found")
	}
	analysis.ReportKey = nil
	analysis.ReportURL = nil
	return analysis, nil
}

func (as *analysisService) ListTypes(ctx context.Context) ([]*types.AnalysisType, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	analysisTypes, err := as.typeRepo.List(ctx, nil)
	if err != nil {
		return nil, storeErr("list analysis types", err)
	}
	return analysisTypes, nil
}

// SeedTypes loads the analysis-type catalog from a YAML file at startup.
// Re-seeding an existing name refreshes its unit and keeps its id.
func (as *analysisService) SeedTypes(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read analysis type catalog: %w", err)
	}
	var catalog analysisTypeCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return fmt.Errorf("parse analysis type catalog: %w", err)
	}
	if len(catalog.Types) == 0 {
		return fmt.Errorf("analysis type catalog %s is empty", path)
	}
	seed := make([]*types.AnalysisType, 0, len(catalog.Types))
	for _, entry := range catalog.Types {
		if entry.Name == "" {
			return fmt.Errorf("analysis type catalog %s contains an unnamed type", path)
		}
		seed = append(seed, &types.AnalysisType{
			ID:   uuid.New(),
			Name: entry.Name,
			Unit: entry.Unit,
		})
	}
	if err := as.typeRepo.Upsert(ctx, nil, seed); err != nil {
		return fmt.Errorf("seed analysis types: %w", err)
	}
	as.log.Info("seeded analysis type catalog", "count", len(seed), "path", path)
	return nil
}
