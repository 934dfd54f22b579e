package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type CreateProjectInput struct {
	Name               string     `json:"name"`
	ClientOrgID        *uuid.UUID `json:"client_org_id,omitempty"`
	ExternalClientName *string    `json:"external_client_name,omitempty"`
	ExecutingOrgID     uuid.UUID  `json:"executing_org_id"`
	WorkflowMode       string     `json:"workflow_mode,omitempty"`
	ExternalRef        *string    `json:"external_ref,omitempty"`
}

type UpdateProjectInput struct {
	Name         *string `json:"name,omitempty"`
	Status       *string `json:"status,omitempty"`
	WorkflowMode *string `json:"workflow_mode,omitempty"`
	ExternalRef  *string `json:"external_ref,omitempty"`
}

type ProjectService interface {
	Create(ctx context.Context, input CreateProjectInput) (*types.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Project, error)
	List(ctx context.Context) ([]*types.Project, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*types.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	orgRepo     repos.OrganizationRepo
	access      AccessService
}

func NewProjectService(db *gorm.DB, log *logger.Logger, projectRepo repos.ProjectRepo, orgRepo repos.OrganizationRepo, access AccessService) ProjectService {
	serviceLog := log.With("service", "ProjectService")
	return &projectService{db: db, log: serviceLog, projectRepo: projectRepo, orgRepo: orgRepo, access: access}
}

func (ps *projectService) Create(ctx context.Context, input CreateProjectInput) (*types.Project, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role == types.RoleViewer {
		return nil, apierr.Forbidden("viewers may not create projects")
	}
	if input.Name == "" {
		return nil, apierr.InvalidData("project name is required")
	}
	hasClientOrg := input.ClientOrgID != nil
	hasExternalClient := input.ExternalClientName != nil && *input.ExternalClientName != ""
	if hasClientOrg == hasExternalClient {
		return nil, apierr.InvalidData("exactly one of client_org_id and external_client_name must be set")
	}
	mode := input.WorkflowMode
	if mode == "" {
		mode = types.WorkflowModeAnalysisFirst
	}
	if mode != types.WorkflowModeAnalysisFirst && mode != types.WorkflowModeTrialFirst {
		return nil, apierr.InvalidData("invalid workflow mode %q", mode)
	}

	orgIDs := []uuid.UUID{input.ExecutingOrgID}
	if hasClientOrg {
		orgIDs = append(orgIDs, *input.ClientOrgID)
	}

	var project *types.Project
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := ps.orgRepo.CountByIDs(ctx, tx, rd.WorkspaceID, orgIDs)
		if err != nil {
			return storeErr("create project", err)
		}
		if count != int64(len(orgIDs)) {
			return apierr.InvalidData("referenced organization not found in workspace")
		}
		created, err := ps.projectRepo.Create(ctx, tx, []*types.Project{{
			ID:                 uuid.New(),
			WorkspaceID:        rd.WorkspaceID,
			Name:               input.Name,
			ClientOrgID:        input.ClientOrgID,
			ExternalClientName: input.ExternalClientName,
			ExecutingOrgID:     input.ExecutingOrgID,
			WorkflowMode:       mode,
			Status:             types.ProjectStatusActive,
			ExternalRef:        input.ExternalRef,
		}})
		if err != nil {
			return storeErr("create project", err)
		}
		project, err = ps.projectRepo.GetWithOrgNames(ctx, tx, rd.WorkspaceID, created[0].ID)
		if err != nil {
			return storeErr("create project", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (ps *projectService) Get(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	project, err := ps.projectRepo.GetWithOrgNames(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("get project", err)
	}
	if project == nil {
		// A ledger grant can extend read access across the workspace
		// boundary. Without one, a foreign project reads as not found.
		foreign, err := ps.projectRepo.GetByIDAny(ctx, nil, id)
		if err != nil {
			return nil, storeErr("get project", err)
		}
		if foreign == nil {
			return nil, apierr.NotFound("project not found")
		}
		if _, err := ps.access.ResolveObjectAccess(ctx, foreign.WorkspaceID, "project", id); err != nil {
			if apierr.IsCode(err, apierr.CodeForbidden) {
				return nil, apierr.NotFound("project not found")
			}
			return nil, err
		}
		return foreign, nil
	}
	return project, nil
}

func (ps *projectService) List(ctx context.Context) ([]*types.Project, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := ps.projectRepo.List(ctx, nil, rd.WorkspaceID)
	if err != nil {
		return nil, storeErr("list projects", err)
	}
	return projects, nil
}

func (ps *projectService) Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*types.Project, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	// One capability resolution per operation: admins and members pass on
	// role, viewers need an edit-or-better grant on this project.
	level, err := ps.access.ResolveObjectAccess(ctx, rd.WorkspaceID, "project", id)
	if err != nil {
		return nil, err
	}
	if level == types.AccessLevelView {
		return nil, apierr.Forbidden("view-level access cannot modify a project")
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apierr.InvalidData("project name cannot be empty")
		}
		fields["name"] = *input.Name
	}
	if input.Status != nil {
		switch *input.Status {
		case types.ProjectStatusActive, types.ProjectStatusOnHold, types.ProjectStatusCompleted:
		default:
			return nil, apierr.InvalidData("invalid project status %q", *input.Status)
		}
		fields["status"] = *input.Status
	}
	if input.WorkflowMode != nil {
		if *input.WorkflowMode != types.WorkflowModeAnalysisFirst && *input.WorkflowMode != types.WorkflowModeTrialFirst {
			return nil, apierr.InvalidData("invalid workflow mode %q", *input.WorkflowMode)
		}
		fields["workflow_mode"] = *input.WorkflowMode
	}
	if input.ExternalRef != nil {
		fields["external_ref"] = *input.ExternalRef
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidData("no fields supplied for update")
	}

	rows, err := ps.projectRepo.UpdateFields(ctx, nil, rd.WorkspaceID, id, fields)
	if err != nil {
		return nil, storeErr("update project", err)
	}
	if rows == 0 {
		return nil, apierr.NotFound("project not found")
	}
	project, err := ps.projectRepo.GetWithOrgNames(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return nil, storeErr("update project", err)
	}
	if project == nil {
		return nil, apierr.NotFound("project not found")
	}
	return project, nil
}

func (ps *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	if rd.Role == types.RoleViewer {
		return apierr.Forbidden("viewers may not delete projects")
	}
	rows, err := ps.projectRepo.SoftDelete(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return storeErr("delete project", err)
	}
	if rows == 0 {
		return apierr.NotFound("project not found")
	}
	return nil
}
