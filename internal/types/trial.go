package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Trial struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index;column:project_id" json:"project_id"`
	Objective string         `gorm:"not null;column:objective" json:"objective"`
	Status    string         `gorm:"not null;default:'planned';column:status" json:"status"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Trial) TableName() string {
	return "trial"
}

// TemplateColumn is one typed column of a trial parameter template. The
// ordered column list is the schema contract downstream samples reference.
type TemplateColumn struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Unit     string `json:"unit,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// TrialParameterTemplate is the per-project ordered column schema, versioned
// by overwrite: writing a new template replaces the prior one whole.
type TrialParameterTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex;column:project_id" json:"project_id"`
	Columns   datatypes.JSON `gorm:"not null;column:columns" json:"columns"`
	Version   int            `gorm:"not null;default:1;column:version" json:"version"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (TrialParameterTemplate) TableName() string {
	return "trial_parameter_template"
}
