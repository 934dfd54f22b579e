package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/types"
)

type CreateOrganizationInput struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	ParentOrgID *uuid.UUID     `json:"parent_org_id,omitempty"`
	ContactInfo datatypes.JSON `json:"contact_info,omitempty"`
}

type UpdateOrganizationInput struct {
	Name        *string         `json:"name,omitempty"`
	Type        *string         `json:"type,omitempty"`
	ContactInfo *datatypes.JSON `json:"contact_info,omitempty"`
}

type OrganizationService interface {
	Create(ctx context.Context, input CreateOrganizationInput) (*types.Organization, error)
	List(ctx context.Context) ([]*types.Organization, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateOrganizationInput) (*types.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type organizationService struct {
	db      *gorm.DB
	log     *logger.Logger
	orgRepo repos.OrganizationRepo
}

func NewOrganizationService(db *gorm.DB, log *logger.Logger, orgRepo repos.OrganizationRepo) OrganizationService {
	serviceLog := log.With("service", "OrganizationService")
	return &organizationService{db: db, log: serviceLog, orgRepo: orgRepo}
}

func (os *organizationService) Create(ctx context.Context, input CreateOrganizationInput) (*types.Organization, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role != types.RoleAdmin {
		return nil, apierr.Forbidden("only admins may create organizations")
	}
	if input.Name == "" {
		return nil, apierr.InvalidData("organization name is required")
	}
	if _, ok := types.ValidOrgTypes[input.Type]; !ok {
		return nil, apierr.InvalidData("invalid organization type %q", input.Type)
	}
	if input.ParentOrgID != nil {
		parents, err := os.orgRepo.GetByIDs(ctx, nil, rd.WorkspaceID, []uuid.UUID{*input.ParentOrgID})
		if err != nil {
			return nil, storeErr("create organization", err)
		}
		if len(parents) == 0 {
			return nil, apierr.InvalidData("parent organization not found in workspace")
		}
	}

	org := &types.Organization{
		ID:          uuid.New(),
		WorkspaceID: rd.WorkspaceID,
		Name:        input.Name,
		Type:        input.Type,
		ParentOrgID: input.ParentOrgID,
		ContactInfo: input.ContactInfo,
	}
	created, err := os.orgRepo.Create(ctx, nil, []*types.Organization{org})
	if err != nil {
		return nil, storeErr("create organization", err)
	}
	return created[0], nil
}

func (os *organizationService) List(ctx context.Context) ([]*types.Organization, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	orgs, err := os.orgRepo.List(ctx, nil, rd.WorkspaceID)
	if err != nil {
		return nil, storeErr("list organizations", err)
	}
	return orgs, nil
}

func (os *organizationService) Update(ctx context.Context, id uuid.UUID, input UpdateOrganizationInput) (*types.Organization, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if rd.Role != types.RoleAdmin {
		return nil, apierr.Forbidden("only admins may update organizations")
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apierr.InvalidData("organization name cannot be empty")
		}
		fields["name"] = *input.Name
	}
	if input.Type != nil {
		if _, ok := types.ValidOrgTypes[*input.Type]; !ok {
			return nil, apierr.InvalidData("invalid organization type %q", *input.Type)
		}
		fields["type"] = *input.Type
	}
	if input.ContactInfo != nil {
		fields["contact_info"] = *input.ContactInfo
	}
	if len(fields) == 0 {
		return nil, apierr.InvalidData("no fields supplied for update")
	}

	rows, err := os.orgRepo.UpdateFields(ctx, nil, rd.WorkspaceID, id, fields)
	if err != nil {
		return nil, storeErr("update organization", err)
	}
	if rows == 0 {
		return nil, apierr.NotFound("organization not found")
	}
	orgs, err := os.orgRepo.GetByIDs(ctx, nil, rd.WorkspaceID, []uuid.UUID{id})
	if err != nil {
		return nil, storeErr("update organization", err)
	}
	if len(orgs) == 0 {
		return nil, apierr.NotFound("organization not found")
	}
	return orgs[0], nil
}

func (os *organizationService) Delete(ctx context.Context, id uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	if rd.Role != types.RoleAdmin {
		return apierr.Forbidden("only admins may delete organizations")
	}
	rows, err := os.orgRepo.SoftDelete(ctx, nil, rd.WorkspaceID, id)
	if err != nil {
		return storeErr("delete organization", err)
	}
	if rows == 0 {
		return apierr.NotFound("organization not found")
	}
	return nil
}
