package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ResultStatusSuccess = "Success"
	ResultStatusError   = "Error"
)

// EngineResult is one row per execution attempt within a run: one per batch
// for the conversion stage, one per (batch, report_type) pair for the
// calculation stage. Immutable after creation; failures are recorded as
// Error-status rows, never raised, so a run can mix Success and Error rows.
type EngineResult struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"type:varchar(36);not null;index"`

	ModelType  string `gorm:"type:varchar(10);not null;index"`
	ReportType string `gorm:"type:varchar(50);not null;index"`
	Year       int    `gorm:"not null;index"`
	Quarter    string `gorm:"type:varchar(2);not null;index"`
	Currency   string `gorm:"type:varchar(3)"`
	BatchID    uint64 `gorm:"index"`

	Status string         `gorm:"type:varchar(10);not null;index"`
	Result datatypes.JSON `gorm:"type:jsonb"`

	Values []CalculationValue `gorm:"foreignKey:EngineResultID;constraint:OnDelete:CASCADE"`

	CreatedBy string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (EngineResult) TableName() string {
	return "engine_results"
}
