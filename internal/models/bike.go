package models

import (
	"gorm.io/gorm"
)

type BikeStatus string

const (
	BikeStatusAvailable BikeStatus = "available"
	BikeStatusRented    BikeStatus = "rented"
)

// BikeType groups bikes sharing a name and an hourly price.
type BikeType struct {
	gorm.Model
	Name         string  `json:"name" gorm:"unique;not null"`
	PricePerHour float64 `json:"pricePerHour" gorm:"not null"`
}

// TableName specifies the table name
func (BikeType) TableName() string {
	return "bike_types"
}

// Bike is a single rentable unit. StationID is NULL while the bike is
// rented: a rented bike has no station, an available bike always has one.
type Bike struct {
	gorm.Model
	TypeID    uint       `json:"typeId" gorm:"not null"`
	Type      BikeType   `json:"type"`
	StationID *uint      `json:"stationId"`
	Station   *Station   `json:"station,omitempty"`
	Status    BikeStatus `json:"status" gorm:"not null;default:'available'"`
}

// TableName specifies the table name
func (Bike) TableName() string {
	return "bikes"
}
