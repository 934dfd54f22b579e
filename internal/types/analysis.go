package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AnalysisStatusPending    = "pending"
	AnalysisStatusInProgress = "in_progress"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusFailed     = "failed"
)

func AnalysisStatusTerminal(status string) bool {
	return status == AnalysisStatusCompleted || status == AnalysisStatusFailed
}

type AnalysisType struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex;column:name" json:"name"`
	Unit      string    `gorm:"column:unit" json:"unit,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AnalysisType) TableName() string {
	return "analysis_type"
}

// Analysis is one analytical result against one sample within one batch.
// At most one row per (sample_id, type_id) carries is_authoritative = true;
// supersession is append-only, never an in-place overwrite.
type Analysis struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID     uuid.UUID      `gorm:"type:uuid;not null;index;column:workspace_id" json:"workspace_id"`
	BatchID         uuid.UUID      `gorm:"type:uuid;not null;index;column:batch_id" json:"batch_id"`
	SampleID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_analysis_sample_type;column:sample_id" json:"sample_id"`
	TypeID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_analysis_sample_type;column:type_id" json:"type_id"`
	Status          string         `gorm:"not null;default:'pending';column:status" json:"status"`
	IsAuthoritative bool           `gorm:"not null;default:false;column:is_authoritative" json:"is_authoritative"`
	SupersedesID    *uuid.UUID     `gorm:"type:uuid;column:supersedes_id" json:"supersedes_id,omitempty"`
	ResultData      datatypes.JSON `gorm:"column:result_data" json:"result_data,omitempty"`
	ReportKey       *string        `gorm:"column:report_key" json:"report_key,omitempty"`
	ReportURL       *string        `gorm:"column:report_url" json:"report_url,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Analysis) TableName() string {
	return "analysis"
}
