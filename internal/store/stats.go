package store

import (
	"context"
	"time"

	"github.com/citycycle/citycycle-bot/internal/models"
)

// DailyCount is one bar of the rentals-per-day report. Day is formatted
// as 2006-01-02 so the same query works on Postgres and sqlite.
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DailyAmount is one point of the income report.
type DailyAmount struct {
	Day    string  `json:"day"`
	Amount float64 `json:"amount"`
}

// RatingCount is one slice of a bike's rating distribution.
type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// StationCount is one row of the station activity report.
type StationCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RentalsPerDay counts rentals started in the last N days, grouped by day.
func (s *Store) RentalsPerDay(ctx context.Context, days int) ([]DailyCount, error) {
	since := time.Now().AddDate(0, 0, -days)

	var rows []DailyCount
	err := s.db.WithContext(ctx).
		Model(&models.Rental{}).
		Select("DATE(start_time) AS day, COUNT(*) AS count").
		Where("start_time >= ?", since).
		Group("DATE(start_time)").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IncomePerDay sums completed payments over the last N days, grouped by day.
func (s *Store) IncomePerDay(ctx context.Context, days int) ([]DailyAmount, error) {
	since := time.Now().AddDate(0, 0, -days)

	var rows []DailyAmount
	err := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("DATE(payment_date) AS day, SUM(amount) AS amount").
		Where("status = ? AND payment_date >= ?", models.PaymentStatusCompleted, since).
		Group("DATE(payment_date)").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RatingDistribution counts reviews per rating value for one bike.
func (s *Store) RatingDistribution(ctx context.Context, bikeID uint) ([]RatingCount, error) {
	var rows []RatingCount
	err := s.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("bike_id = ?", bikeID).
		Group("rating").
		Order("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// StationActivity ranks stations by rentals started there, busiest first.
func (s *Store) StationActivity(ctx context.Context, limit int) ([]StationCount, error) {
	var rows []StationCount
	err := s.db.WithContext(ctx).
		Model(&models.Rental{}).
		Select("stations.name AS name, COUNT(rentals.id) AS count").
		Joins("JOIN stations ON stations.id = rentals.start_station_id").
		Group("stations.name").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
