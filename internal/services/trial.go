package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type CreateTrialInput struct {
	Objective string `json:"objective"`
}

type UpdateTrialInput struct {
	Objective *string `json:"objective,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type PutTemplateInput struct {
	Columns []types.TemplateColumn `json:"columns"`
}

type TrialService interface {
	Create(ctx context.Context, projectID uuid.UUID, input CreateTrialInput) (*types.Trial, error)
	Get(ctx context.Context, projectID, id uuid.UUID) (*types.Trial, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*types.Trial, error)
	Update(ctx context.Context, projectID, id uuid.UUID, input UpdateTrialInput) (*types.Trial, error)
	Delete(ctx context.Context, projectID, id uuid.UUID) error
	GetTemplate(ctx context.Context, projectID uuid.UUID) (*types.TrialParameterTemplate, error)
	PutTemplate(ctx context.Context, projectID uuid.UUID, input PutTemplateInput) (*types.TrialParameterTemplate, error)
}

type trialService struct {
	db          *gorm.DB
	log         *logger.Logger
	trialRepo   repos.TrialRepo
	projectRepo repos.ProjectRepo
}

func NewTrialService(db *gorm.DB, log *logger.Logger, trialRepo repos.TrialRepo, projectRepo repos.ProjectRepo) TrialService {
	serviceLog := log.With("service", "TrialService")
	return &trialService{db: db, log: serviceLog, trialRepo: trialRepo, projectRepo: projectRepo}
}

var validTrialStatuses = map[string]struct{}{
	"planned":     {},
	"in_progress": {},
	"completed":   {},
	"aborted":     {},
}

var validColumnKinds = map[string]struct{}{
	"string": {},
	"number": {},
	"bool":   {},
	"date":   {},
}

// projectInWorkspace resolves the project through the caller's workspace so
// a foreign project id reads as not found.
func (ts *trialService) projectInWorkspace(ctx context.Context, tx *gorm.DB, workspaceID, projectID uuid.UUID) error {
	project, err := ts.projectRepo.GetByID(ctx, tx, workspaceID, projectID)
	if err != nil {
		return storeErr("resolve project", err)
	}
	if project == nil {
		return apierr.NotFound("project not found")
	}
	return nil
}

func (ts *trialService) Create(ctx context.Context, projectID uuid.UUID, input CreateTrialInput) (*types.Trial, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not create trials")
	}
	if input.Objective == "" {
		return nil, apierr.InvalidData("trial objective is required")
	}
	if err := ts.projectInWorkspace(ctx, nil, rd.WorkspaceID, projectID); err != nil {
		return nil, err
	}
	created, err := ts.trialRepo.Create(ctx, nil, []*types.Trial{{
		ID:        uuid.New(),
		ProjectID: projectID,
		Objective: input.Objective,
		Status:    "planned",
	}})
	if err != nil {
		return nil, storeErr("create trial", err)
	}
	return created[0], nil
}

func (ts *trialService) Get(ctx context.Context, projectID, id uuid.UUID) (*types.Trial, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := ts.projectInWorkspace(ctx, nil, rd.WorkspaceID, projectID); err != nil {
		return nil, err
	}
	trial, err := ts.trialRepo.GetByID(ctx, nil, projectID, id)
	if err != nil {
		return nil, storeErr("get trial", err)
	}
	if trial == nil {
		return nil, apierr.NotFound("trial not found")
	}
	return trial, nil
}

func (ts *trialService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*types.Trial, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := ts.projectInWorkspace(ctx, nil, rd.WorkspaceID, projectID); err != nil {
		return nil, err
	}
	trials, err := ts.trialRepo.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, storeErr("list trials", err)
	}
	return trials, nil
}

func (ts *trialService) Update(ctx context.Context, projectID, id uuid.UUID, input UpdateTrialInput) (*types.Trial, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not update trials")
	}
	if err := ts.projectInWorkspace(ctx, nil, rd.WorkspaceID, projectID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Objective != nil {
		if *input.Objective == "" {
			return nil, apierr.InvalidData("trial objective cannot be empty")
		}
		fields["objective"] = *input.Objective
	}
	if input.Status != nil {
		if _, ok := validTrialStatuses[*input.Status]; !ok {
			return nil, apierr.InvalidData("invalid trial status %q", *input.Status)
		}
		fields["status"] = *input.Status
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidData("no fields supplied for update")
	}

	rows, err := ts.trialRepo.UpdateFields(ctx, nil, projectID, id, fields)
	if err != nil {
		return nil, storeErr("update trial", err)
	}
	if rows == 0 {
		return nil, apierr.NotFound("trial not found")
	}
	trial, err := ts.trialRepo.GetByID(ctx, nil, projectID, id)
	if err != nil {
		return nil, storeErr("update trial", err)
	}
	if trial == nil {
		return nil, apierr.NotFound("trial not found")
	}
	return trial, nil
}

func (ts *trialService) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	if rd.Role == types.RoleViewer {
		return apierr.Forbidden("viewers may not delete trials")
	}
	if err := ts.projectInWorkspace(ctx, nil, rd.WorkspaceID, projectID); err != nil {
		return err
	}
	rows, err := ts.trialRepo.SoftDelete(ctx, nil, projectID, id)
	if err != nil {
		return storeErr("delete trial", err)
	}
	if rows == 0 {
		return apierr.NotFound("trial not found")
	}
	return nil
}

func (ts *trialService) GetTemplate(ctx context.Context, projectID uuid.UUID) (*types.TrialParameterTemplate, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := ts.projectInWorkspace(ctx, nil, rd.WorkspaceID, projectID); err != nil {
		return nil, err
	}
	template, err := ts.trialRepo.GetTemplate(ctx, nil, projectID)
	if err != nil {
		return nil, storeErr("get trial template", err)
	}
	if template == nil {
		return nil, apierr.NotFound("no parameter template for project")
	}
	return template, nil
}

func (ts *trialService) PutTemplate(ctx context.Context, projectID uuid.UUID, input PutTemplateInput) (*types.TrialParameterTemplate, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not edit parameter templates")
	}
	if len(input.Columns) == 0 {
		return nil, apierr.InvalidData("template requires at least one column")
	}
	seen := map[string]struct{}{}
	for _, col := range input.Columns {
		if col.Name == "" {
			return nil, apierr.InvalidData("template column name is required")
		}
		if _, ok := validColumnKinds[col.Kind]; !ok {
			return nil, apierr.InvalidData("invalid column kind %q", col.Kind)
		}
		if _, dup := seen[col.Name]; dup {
			return nil, apierr.InvalidData("duplicate template column %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	if err := ts.projectInWorkspace(ctx, nil, rd.WorkspaceID, projectID); err != nil {
		return nil, err
	}

	columnsJSON, err := json.Marshal(input.Columns)
	if err != nil {
		return nil, apierr.InvalidData("template columns not serializable")
	}

	var template *types.TrialParameterTemplate
	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		template, err = ts.trialRepo.ReplaceTemplate(ctx, tx, &types.TrialParameterTemplate{
			ID:        uuid.New(),
			ProjectID: projectID,
			Columns:   columnsJSON,
			Version:   1,
		})
		if err != nil {
			return storeErr("replace trial template", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}
