package models

import (
	"time"

	"gorm.io/datatypes"
)

// EngineInput is the frozen snapshot of everything fed into one run. It is
// written once at run start and never mutated; every EngineResult under the
// same run_id must be reproducible from it (modulo script nondeterminism).
type EngineInput struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"type:varchar(36);uniqueIndex;not null"`

	ModelSnapshot   datatypes.JSON `gorm:"type:jsonb;not null"`
	BatchData       datatypes.JSON `gorm:"type:jsonb;not null"`
	FieldParameters datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedBy string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (EngineInput) TableName() string {
	return "engine_inputs"
}
