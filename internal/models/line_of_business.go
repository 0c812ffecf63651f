package models

import "time"

type LineOfBusiness struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Code         string `gorm:"type:varchar(30);index"`
	CurrencyCode string `gorm:"type:varchar(3);not null;default:'USD'"`
	LegalEntity  string `gorm:"type:varchar(100)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (LineOfBusiness) TableName() string {
	return "line_of_businesses"
}
