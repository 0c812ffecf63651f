package db

import (
	"ifrs17/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.ModelDefinition{},
		&models.Batch{},
		&models.Upload{},
		&models.LineOfBusiness{},
		&models.ReportType{},
		&models.CalculationConfig{},
		&models.ConversionConfig{},
		&models.EngineInput{},
		&models.EngineResult{},
		&models.CalculationValue{},
		&models.AssumptionReference{},
		&models.InputDataReference{},
		&models.SubmittedReport{},
	)
}
