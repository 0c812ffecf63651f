package models

import (
	"time"

	"gorm.io/datatypes"
)

// Measurement models supported by the platform.
const (
	ModelTypePAA = "PAA"
	ModelTypeGMM = "GMM"
	ModelTypeVFA = "VFA"
)

// ModelDefinition is an actuarial model configuration. Edits are guarded by a
// cooperative advisory lock (locked_by/locked_at); the lock is checked before
// updates and swept by cron when stale, it is not a database-level guarantee.
type ModelDefinition struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null"`
	ModelType   string `gorm:"type:varchar(10);not null;index"`
	Description string `gorm:"type:text"`

	Config datatypes.JSON `gorm:"type:jsonb;not null"`

	LockedBy *string    `gorm:"type:varchar(100)"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	CreatedBy string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ModelDefinition) TableName() string {
	return "model_definitions"
}
