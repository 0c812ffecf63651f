package models

import "time"

// CalculationConfig selects the calculation engine script for a
// (batch_type, batch_model, insurance_type, engine_type) combination. The
// uploaded script is an opaque blob, materialized to a temp file only for the
// lifetime of one invocation.
type CalculationConfig struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"type:varchar(150);not null"`
	BatchType     string `gorm:"type:varchar(50);not null;index:idx_calc_configs_key"`
	BatchModel    string `gorm:"type:varchar(10);not null;index:idx_calc_configs_key"`
	InsuranceType string `gorm:"type:varchar(50);index:idx_calc_configs_key"`
	EngineType    string `gorm:"type:varchar(50);index:idx_calc_configs_key"`

	ScriptName  string `gorm:"type:varchar(255)"`
	ScriptBytes []byte `gorm:"type:bytea"`

	CreatedBy string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CalculationConfig) TableName() string {
	return "calculation_configs"
}

func (c *CalculationConfig) HasScript() bool {
	return c != nil && len(c.ScriptBytes) > 0
}

// ConversionConfig selects the conversion engine script that turns raw batch
// uploads into a staging table.
type ConversionConfig struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"type:varchar(150);not null"`
	BatchType     string `gorm:"type:varchar(50);not null;index:idx_conv_configs_key"`
	BatchModel    string `gorm:"type:varchar(10);not null;index:idx_conv_configs_key"`
	InsuranceType string `gorm:"type:varchar(50);index:idx_conv_configs_key"`
	EngineType    string `gorm:"type:varchar(50);index:idx_conv_configs_key"`

	ScriptName  string `gorm:"type:varchar(255)"`
	ScriptBytes []byte `gorm:"type:bytea"`

	CreatedBy string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ConversionConfig) TableName() string {
	return "conversion_configs"
}

func (c *ConversionConfig) HasScript() bool {
	return c != nil && len(c.ScriptBytes) > 0
}
