package models

import (
	"time"
)

const (
	BatchStatusPending   = "pending"
	BatchStatusCompleted = "completed"
	BatchStatusFailed    = "failed"
)

// Batch groups the uploaded source-data files for one reporting
// period/model/insurance-type combination.
type Batch struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"type:varchar(150);not null"`
	BatchType     string `gorm:"type:varchar(50);not null;index"`
	BatchModel    string `gorm:"type:varchar(10);not null;index"`
	InsuranceType string `gorm:"type:varchar(50);index"`
	Year          int    `gorm:"not null;index"`
	Quarter       string `gorm:"type:varchar(2);not null;index"`
	Status        string `gorm:"type:varchar(20);not null;default:'pending';index"`

	Uploads []Upload `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`

	CreatedBy string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Batch) TableName() string {
	return "batches"
}

// Upload is the metadata of one uploaded data file. Raw file bytes are stored
// elsewhere and never enter engine payloads.
type Upload struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	BatchID uint64 `gorm:"not null;index"`

	FileName         string `gorm:"type:varchar(255);not null"`
	Source           string `gorm:"type:varchar(100)"`
	DataType         string `gorm:"type:varchar(50);index"`
	ValidationStatus string `gorm:"type:varchar(20);default:'pending'"`
	RowCount         int    `gorm:"default:0"`
	ErrorCount       int    `gorm:"default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Upload) TableName() string {
	return "uploads"
}
