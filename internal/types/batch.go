package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BatchStatusCreated    = "created"
	BatchStatusInProgress = "in_progress"
	BatchStatusReady      = "ready"
	BatchStatusSent       = "sent"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// BatchStatusRank fixes the forward-only ordering. failed is terminal and
// reachable from any non-terminal status, so it carries no rank here.
var BatchStatusRank = map[string]int{
	BatchStatusCreated:    0,
	BatchStatusInProgress: 1,
	BatchStatusReady:      2,
	BatchStatusSent:       3,
	BatchStatusCompleted:  4,
}

func BatchStatusTerminal(status string) bool {
	return status == BatchStatusCompleted || status == BatchStatusFailed
}

const (
	BatchExecutionInternal = "internal"
	BatchExecutionExternal = "external"
)

type Batch struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID   uuid.UUID      `gorm:"type:uuid;not null;index;column:workspace_id" json:"workspace_id"`
	Name          string         `gorm:"not null;column:name" json:"name"`
	Status        string         `gorm:"not null;default:'created';column:status" json:"status"`
	ExecutionMode string         `gorm:"not null;default:'internal';column:execution_mode" json:"execution_mode"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Batch) TableName() string {
	return "batch"
}

type BatchSample struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_batch_sample;column:batch_id" json:"batch_id"`
	SampleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_batch_sample;column:sample_id" json:"sample_id"`
}

func (BatchSample) TableName() string {
	return "batch_sample"
}
