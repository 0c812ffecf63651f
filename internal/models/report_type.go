package models

import "time"

// Built-in report type codes. DisclosureReport is the only type with
// structured audit support; StagingTable is written by the conversion stage.
const (
	ReportTypeStagingTable = "staging_table"
	ReportTypeDisclosure   = "disclosure_report"
)

// ReportType gates which report types are attempted for a measurement model.
type ReportType struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	BatchModel string `gorm:"type:varchar(10);not null;uniqueIndex:idx_report_types_model_code"`
	Code       string `gorm:"type:varchar(50);not null;uniqueIndex:idx_report_types_model_code"`
	Name       string `gorm:"type:varchar(150);not null"`
	Enabled    bool   `gorm:"default:true;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ReportType) TableName() string {
	return "report_types"
}
