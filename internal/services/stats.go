package services

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type WorkspaceStats struct {
	Organizations int64 `json:"organizations"`
	Projects      int64 `json:"projects"`
	Trials        int64 `json:"trials"`
	Samples       int64 `json:"samples"`
	Batches       int64 `json:"batches"`
	Analyses      int64 `json:"analyses"`
	OpenHandoffs  int64 `json:"open_handoffs"`
}

type StatsService interface {
	WorkspaceStats(ctx context.Context) (*WorkspaceStats, error)
}

type statsService struct {
	db           *gorm.DB
	log          *logger.Logger
	orgRepo      repos.OrganizationRepo
	projectRepo  repos.ProjectRepo
	trialRepo    repos.TrialRepo
	sampleRepo   repos.SampleRepo
	batchRepo    repos.BatchRepo
	analysisRepo repos.AnalysisRepo
	requestRepo  repos.SupplyChainRequestRepo
}

func NewStatsService(
	db *gorm.DB,
	log *logger.Logger,
	orgRepo repos.OrganizationRepo,
	projectRepo repos.ProjectRepo,
	trialRepo repos.TrialRepo,
	sampleRepo repos.SampleRepo,
	batchRepo repos.BatchRepo,
	analysisRepo repos.AnalysisRepo,
	requestRepo repos.SupplyChainRequestRepo,
) StatsService {
	serviceLog := log.With("service", "StatsService")
	return &statsService{
		db:           db,
		log:          serviceLog,
		orgRepo:      orgRepo,
		projectRepo:  projectRepo,
		trialRepo:    trialRepo,
		sampleRepo:   sampleRepo,
		batchRepo:    batchRepo,
		analysisRepo: analysisRepo,
		requestRepo:  requestRepo,
	}
}

// WorkspaceStats fans the seven counts out concurrently; each count is an
// independent read so a shared transaction buys nothing here.
func (ss *statsService) WorkspaceStats(ctx context.Context) (*WorkspaceStats, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role != types.RoleAdmin {
		return nil, apierr.Forbidden("only admins may read workspace stats")
	}

	stats := &WorkspaceStats{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := ss.orgRepo.Count(gctx, nil, rd.WorkspaceID)
		stats.Organizations = count
		return err
	})
	g.Go(func() error {
		count, err := ss.projectRepo.Count(gctx, nil, rd.WorkspaceID)
		stats.Projects = count
		return err
	})
	g.Go(func() error {
		count, err := ss.trialRepo.CountByWorkspace(gctx, nil, rd.WorkspaceID)
		stats.Trials = count
		return err
	})
	g.Go(func() error {
		count, err := ss.sampleRepo.Count(gctx, nil, rd.WorkspaceID)
		stats.Samples = count
		return err
	})
	g.Go(func() error {
		count, err := ss.batchRepo.Count(gctx, nil, rd.WorkspaceID)
		stats.Batches = count
		return err
	})
	g.Go(func() error {
		count, err := ss.analysisRepo.Count(gctx, nil, rd.WorkspaceID)
		stats.Analyses = count
		return err
	})
	g.Go(func() error {
		count, err := ss.requestRepo.CountOpen(gctx, nil, rd.WorkspaceID)
		stats.OpenHandoffs = count
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr("workspace stats", err)
	}
	return stats, nil
}
