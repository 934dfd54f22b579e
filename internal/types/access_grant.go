package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	AccessLevelView = "view"
	AccessLevelEdit = "edit"
	AccessLevelFull = "full"
)

var ValidAccessLevels = map[string]struct{}{
	AccessLevelView: {},
	AccessLevelEdit: {},
	AccessLevelFull: {},
}

// AccessGrant records an explicit per-object capability for a user. It is
// looked up by object coordinate, not by tenant, so cross-workspace
// collaborators stay visible. Unique on (user_id, object_type, object_id);
// duplicates fail, they never overwrite.
type AccessGrant struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_triple;column:user_id" json:"user_id"`
	ObjectType string    `gorm:"not null;uniqueIndex:idx_grant_triple;column:object_type" json:"object_type"`
	ObjectID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_triple;column:object_id" json:"object_id"`
	Level      string    `gorm:"not null;column:access_level" json:"access_level"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (AccessGrant) TableName() string {
	return "access_grant"
}
