package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WorkflowModeAnalysisFirst = "analysis_first"
	WorkflowModeTrialFirst    = "trial_first"
)

const (
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
)

// Project is a unit of work between a client party and an executing party.
// Exactly one of ClientOrgID and ExternalClientName is set.
type Project struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID        uuid.UUID      `gorm:"type:uuid;not null;index;column:workspace_id" json:"workspace_id"`
	Name               string         `gorm:"not null;column:name" json:"name"`
	ClientOrgID        *uuid.UUID     `gorm:"type:uuid;column:client_org_id" json:"client_org_id,omitempty"`
	ExternalClientName *string        `gorm:"column:external_client_name" json:"external_client_name,omitempty"`
	ExecutingOrgID     uuid.UUID      `gorm:"type:uuid;not null;column:executing_org_id" json:"executing_org_id"`
	WorkflowMode       string         `gorm:"not null;default:'analysis_first';column:workflow_mode" json:"workflow_mode"`
	Status             string         `gorm:"not null;default:'active';column:status" json:"status"`
	ExternalRef        *string        `gorm:"column:external_ref" json:"external_ref,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Populated by joined reads, never persisted.
	ClientOrgName    string `gorm:"->;-:migration" json:"client_org_name,omitempty"`
	ExecutingOrgName string `gorm:"->;-:migration" json:"executing_org_name,omitempty"`
}

func (Project) TableName() string {
	return "project"
}
