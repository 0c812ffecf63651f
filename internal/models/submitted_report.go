package models

import "time"

const (
	SubmissionStatusActive     = "active"
	SubmissionStatusSuperseded = "superseded"
)

// SubmittedReport is the publication pointer from a (report_type, year,
// quarter) triple to one EngineResult. At most one row per triple is active;
// submitting a new one demotes the previous active row to superseded. The
// engine_result reference does not cascade; a dangling pointer is reported,
// not fatal.
type SubmittedReport struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ReportType     string `gorm:"type:varchar(50);not null;index:idx_submitted_reports_key"`
	Year           int    `gorm:"not null;index:idx_submitted_reports_key"`
	Quarter        string `gorm:"type:varchar(2);not null;index:idx_submitted_reports_key"`
	EngineResultID uint64 `gorm:"not null;index"`
	RunID          string `gorm:"type:varchar(36);index"`

	Status      string `gorm:"type:varchar(15);not null;default:'active';index"`
	SubmittedBy string `gorm:"type:varchar(100)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SubmittedReport) TableName() string {
	return "submitted_reports"
}
