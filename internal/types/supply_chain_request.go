package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WorkflowAnalysisOnly        = "analysis_only"
	WorkflowMaterialTransfer    = "material_transfer"
	WorkflowProductContinuation = "product_continuation"
	WorkflowSupplyChain         = "supply_chain"
)

var ValidWorkflowTypes = map[string]struct{}{
	WorkflowAnalysisOnly:        {},
	WorkflowMaterialTransfer:    {},
	WorkflowProductContinuation: {},
	WorkflowSupplyChain:         {},
}

const (
	HandoffStatusPending    = "pending"
	HandoffStatusAccepted   = "accepted"
	HandoffStatusInProgress = "in_progress"
	HandoffStatusCompleted  = "completed"
	HandoffStatusRejected   = "rejected"
)

func HandoffStatusTerminal(status string) bool {
	return status == HandoffStatusCompleted || status == HandoffStatusRejected
}

// SupplyChainRequest moves material or analysis responsibility between two
// organizations in independent workspaces. Workflow type is fixed at
// creation; status only moves through the handoff state machine.
type SupplyChainRequest struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FromWorkspaceID uuid.UUID      `gorm:"type:uuid;not null;index;column:from_workspace_id" json:"from_workspace_id"`
	ToWorkspaceID   uuid.UUID      `gorm:"type:uuid;not null;index;column:to_workspace_id" json:"to_workspace_id"`
	FromOrgID       uuid.UUID      `gorm:"type:uuid;not null;column:from_org_id" json:"from_org_id"`
	ToOrgID         uuid.UUID      `gorm:"type:uuid;not null;column:to_org_id" json:"to_org_id"`
	WorkflowType    string         `gorm:"not null;column:workflow_type" json:"workflow_type"`
	Status          string         `gorm:"not null;default:'pending';column:status" json:"status"`
	Priority        string         `gorm:"not null;default:'normal';column:priority" json:"priority"`
	SampleID        *uuid.UUID     `gorm:"type:uuid;column:sample_id" json:"sample_id,omitempty"`
	LinkedProjectID *uuid.UUID     `gorm:"type:uuid;column:linked_project_id" json:"linked_project_id,omitempty"`
	LinkedSampleID  *uuid.UUID     `gorm:"type:uuid;column:linked_sample_id" json:"linked_sample_id,omitempty"`
	Notes           string         `gorm:"column:notes" json:"notes,omitempty"`
	ResolvedAt      *time.Time     `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (SupplyChainRequest) TableName() string {
	return "supply_chain_request"
}
