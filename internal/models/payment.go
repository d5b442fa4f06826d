package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is the charge raised when a rental closes: duration times the
// hourly price of the bike type, created as pending.
type Payment struct {
	gorm.Model
	RentalID    uint          `json:"rentalId" gorm:"not null;index"`
	Rental      Rental        `json:"rental"`
	Amount      float64       `json:"amount" gorm:"not null"`
	Status      PaymentStatus `json:"status" gorm:"not null;default:'pending'"`
	PaymentDate time.Time     `json:"paymentDate" gorm:"not null"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}
