package models

import (
	"gorm.io/gorm"
)

// Station is a dock where bikes are picked up and returned.
type Station struct {
	gorm.Model
	Name    string `json:"name" gorm:"unique;not null"`
	Address string `json:"address"`
}

// TableName specifies the table name
func (Station) TableName() string {
	return "stations"
}
