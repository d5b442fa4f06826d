package models

import (
	"time"

	"gorm.io/gorm"
)

// Rental records one user occupying one bike between a start and an
// optional end station/time. EndTime == nil means the rental is open; at
// most one open rental may exist per bike.
type Rental struct {
	gorm.Model
	UserID         int64      `json:"userId" gorm:"not null;index"`
	User           User       `json:"user"`
	BikeID         uint       `json:"bikeId" gorm:"not null;index"`
	Bike           Bike       `json:"bike"`
	StartStationID uint       `json:"startStationId" gorm:"not null"`
	StartStation   Station    `json:"startStation" gorm:"foreignKey:StartStationID"`
	StartTime      time.Time  `json:"startTime" gorm:"not null"`
	EndStationID   *uint      `json:"endStationId"`
	EndStation     *Station   `json:"endStation,omitempty" gorm:"foreignKey:EndStationID"`
	EndTime        *time.Time `json:"endTime"`
}

// TableName specifies the table name
func (Rental) TableName() string {
	return "rentals"
}

// IsOpen reports whether the rental has not been closed yet.
func (r *Rental) IsOpen() bool {
	return r.EndTime == nil
}

// Duration returns the rental duration, using now for open rentals.
func (r *Rental) Duration(now time.Time) time.Duration {
	end := now
	if r.EndTime != nil {
		end = *r.EndTime
	}
	return end.Sub(r.StartTime)
}
