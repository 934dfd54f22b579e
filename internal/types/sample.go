package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Sample struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID      `gorm:"type:uuid;not null;index;column:workspace_id" json:"workspace_id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index;column:project_id" json:"project_id"`
	TrialID     *uuid.UUID     `gorm:"type:uuid;index;column:trial_id" json:"trial_id,omitempty"`
	Type        string         `gorm:"not null;column:type" json:"type"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	ExternalRef *string        `gorm:"column:external_ref" json:"external_ref,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Sample) TableName() string {
	return "sample"
}
