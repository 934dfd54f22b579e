package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DerivedSample is a sample split or transformed out of a parent sample.
// SupersedesID points backward along the lineage chain; SupersededAt marks
// a record that is no longer the live head of its lineage.
type DerivedSample struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID    uuid.UUID      `gorm:"type:uuid;not null;index;column:workspace_id" json:"workspace_id"`
	ParentSampleID uuid.UUID      `gorm:"type:uuid;not null;index;column:parent_sample_id" json:"parent_sample_id"`
	SupersedesID   *uuid.UUID     `gorm:"type:uuid;column:supersedes_id" json:"supersedes_id,omitempty"`
	SupersededAt   *time.Time     `gorm:"column:superseded_at" json:"superseded_at,omitempty"`
	Type           string         `gorm:"not null;column:type" json:"type"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (DerivedSample) TableName() string {
	return "derived_sample"
}
