package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CalculationValue is one individually audited output figure of a disclosure
// result, addressed by a dotted hierarchical value_id such as
// "DR.MA.Opening.Liabilities.Total". (run_id, value_id) is unique; the audit
// recorder runs exactly once per successful disclosure result and a second
// population pass for the same run fails on this index.
type CalculationValue struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	EngineResultID uint64 `gorm:"not null;index"`
	RunID          string `gorm:"type:varchar(36);not null;uniqueIndex:idx_calc_values_run_value"`
	ValueID        string `gorm:"type:varchar(200);not null;uniqueIndex:idx_calc_values_run_value;index"`

	ReportType  string `gorm:"type:varchar(50);not null;index"`
	Period      string `gorm:"type:varchar(20);not null;index"`
	LegalEntity string `gorm:"type:varchar(100)"`
	Currency    string `gorm:"type:varchar(3)"`

	Label string          `gorm:"type:varchar(255)"`
	Value decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Unit  string          `gorm:"type:varchar(20);default:'currency'"`

	LineOfBusiness *string `gorm:"type:varchar(100);index"`
	Cohort         *string `gorm:"type:varchar(50)"`
	ContractGroup  *string `gorm:"type:varchar(100)"`

	Formula      string         `gorm:"type:text"`
	Dependencies datatypes.JSON `gorm:"type:jsonb"`
	Method       string         `gorm:"type:varchar(50);default:'direct'"`
	Notes        string         `gorm:"type:text"`

	IsMissingData bool `gorm:"default:false"`
	IsOverride    bool `gorm:"default:false"`
	IsFallback    bool `gorm:"default:false"`
	HasRounding   bool `gorm:"default:false"`

	EngineVersion string    `gorm:"type:varchar(20)"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime"`

	Assumptions []AssumptionReference `gorm:"foreignKey:CalculationValueID;constraint:OnDelete:CASCADE"`
	InputData   []InputDataReference  `gorm:"foreignKey:CalculationValueID;constraint:OnDelete:CASCADE"`
}

func (CalculationValue) TableName() string {
	return "calculation_values"
}

// AssumptionReference records which versioned actuarial assumption was used
// to derive a value.
type AssumptionReference struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	CalculationValueID uint64 `gorm:"not null;index"`

	AssumptionType string         `gorm:"type:varchar(50);not null"`
	AssumptionID   string         `gorm:"type:varchar(100);not null;index"`
	Version        string         `gorm:"type:varchar(20);not null"`
	EffectiveDate  *time.Time     `gorm:"type:date"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (AssumptionReference) TableName() string {
	return "assumption_references"
}

// InputDataReference records which input dataset snapshot fed a value.
type InputDataReference struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	CalculationValueID uint64 `gorm:"not null;index"`

	DatasetName string `gorm:"type:varchar(150);not null;index"`
	SnapshotID  string `gorm:"type:varchar(100)"`
	ContentHash string `gorm:"type:varchar(64)"`
	RecordCount int    `gorm:"default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (InputDataReference) TableName() string {
	return "input_data_references"
}
