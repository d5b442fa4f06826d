package models

import (
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a 1-5 rating a user leaves for a bike when closing a rental.
// Comment is NULL when the user skipped it.
type Review struct {
	gorm.Model
	UserID  int64   `json:"userId" gorm:"not null;index"`
	User    User    `json:"user"`
	BikeID  uint    `json:"bikeId" gorm:"not null;index"`
	Bike    Bike    `json:"bike"`
	Rating  int     `json:"rating" gorm:"not null"`
	Comment *string `json:"comment,omitempty"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
