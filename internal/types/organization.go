package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrgTypeClient     = "client"
	OrgTypeLaboratory = "laboratory"
	OrgTypeAnalyzer   = "analyzer"
	OrgTypePharma     = "pharma"
	OrgTypeInternal   = "internal"
)

var ValidOrgTypes = map[string]struct{}{
	OrgTypeClient:     {},
	OrgTypeLaboratory: {},
	OrgTypeAnalyzer:   {},
	OrgTypePharma:     {},
	OrgTypeInternal:   {},
}

type Organization struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID      `gorm:"type:uuid;not null;index;column:workspace_id" json:"workspace_id"`
	Name        string         `gorm:"not null;column:name" json:"name"`
	Type        string         `gorm:"not null;column:type" json:"type"`
	ParentOrgID *uuid.UUID     `gorm:"type:uuid;column:parent_org_id" json:"parent_org_id,omitempty"`
	ContactInfo datatypes.JSON `gorm:"column:contact_info" json:"contact_info,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Organization) TableName() string {
	return "organization"
}
