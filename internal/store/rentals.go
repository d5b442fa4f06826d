package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/citycycle/citycycle-bot/internal/models"
	"gorm.io/gorm"
)

// OpenRental atomically creates a rental row and flips the bike to rented
// with its station cleared. The bike's availability is re-checked inside
// the transaction, so a bike can never be double-rented.
func (s *Store) OpenRental(ctx context.Context, userID int64, bikeID, stationID uint) (uint, error) {
	var rentalID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bike models.Bike
		if err := tx.First(&bike, bikeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBikeNotFound
			}
			return err
		}
		if bike.Status != models.BikeStatusAvailable {
			return ErrBikeUnavailable
		}

		rental := models.Rental{
			UserID:         userID,
			BikeID:         bikeID,
			StartStationID: stationID,
			StartTime:      time.Now(),
		}
		if err := tx.Create(&rental).Error; err != nil {
			return err
		}

		err := tx.Model(&bike).Updates(map[string]interface{}{
			"status":     models.BikeStatusRented,
			"station_id": nil,
		}).Error
		if err != nil {
			return err
		}

		rentalID = rental.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	return rentalID, nil
}

// CloseRental atomically stamps the rental's end time and station, returns
// the bike to available at that station and raises a pending payment for
// the elapsed time. If any precondition fails nothing is written.
func (s *Store) CloseRental(ctx context.Context, rentalID, endStationID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rental models.Rental
		if err := tx.Preload("Bike.Type").First(&rental, rentalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRentalNotFound
			}
			return err
		}
		if rental.EndTime != nil {
			return ErrRentalClosed
		}

		var stations int64
		if err := tx.Model(&models.Station{}).Where("id = ?", endStationID).Count(&stations).Error; err != nil {
			return err
		}
		if stations == 0 {
			return ErrStationNotFound
		}

		now := time.Now()
		err := tx.Model(&rental).Updates(map[string]interface{}{
			"end_time":       now,
			"end_station_id": endStationID,
		}).Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.Bike{}).Where("id = ?", rental.BikeID).Updates(map[string]interface{}{
			"status":     models.BikeStatusAvailable,
			"station_id": endStationID,
		}).Error
		if err != nil {
			return err
		}

		// Billed per started hour.
		hours := math.Ceil(now.Sub(rental.StartTime).Hours())
		if hours < 1 {
			hours = 1
		}
		payment := models.Payment{
			RentalID:    rental.ID,
			Amount:      hours * rental.Bike.Type.PricePerHour,
			Status:      models.PaymentStatusPending,
			PaymentDate: now,
		}
		return tx.Create(&payment).Error
	})
}

// CancelRental removes an open rental outright and returns the bike to
// available at the rental's start station. Closed rentals cannot be
// cancelled.
func (s *Store) CancelRental(ctx context.Context, rentalID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rental models.Rental
		if err := tx.First(&rental, rentalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRentalNotFound
			}
			return err
		}
		if rental.EndTime != nil {
			return ErrRentalClosed
		}

		if err := tx.Delete(&rental).Error; err != nil {
			return err
		}

		return tx.Model(&models.Bike{}).Where("id = ?", rental.BikeID).Updates(map[string]interface{}{
			"status":     models.BikeStatusAvailable,
			"station_id": rental.StartStationID,
		}).Error
	})
}

// OpenRentalForBike returns the bike's open rental, or ErrRentalNotFound.
func (s *Store) OpenRentalForBike(ctx context.Context, bikeID uint) (*models.Rental, error) {
	var rental models.Rental
	err := s.db.WithContext(ctx).
		Where("bike_id = ? AND end_time IS NULL", bikeID).
		First(&rental).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRentalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rental, nil
}

// UserRentals returns the user's rental history, newest first, with the
// stations and bike type preloaded.
func (s *Store) UserRentals(ctx context.Context, userID int64) ([]models.Rental, error) {
	var rentals []models.Rental
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Bike.Type").
		Preload("StartStation").
		Preload("EndStation").
		Order("start_time DESC").
		Find(&rentals).Error
	if err != nil {
		return nil, err
	}
	return rentals, nil
}

// AddReview persists a review. The rating range is enforced here as the
// last gate before the database.
func (s *Store) AddReview(ctx context.Context, userID int64, bikeID uint, rating int, comment *string) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return ErrInvalidRating
	}
	review := models.Review{
		UserID:  userID,
		BikeID:  bikeID,
		Rating:  rating,
		Comment: comment,
	}
	return s.db.WithContext(ctx).Create(&review).Error
}

// AverageRating returns the mean rating for a bike, 0 when unreviewed.
func (s *Store) AverageRating(ctx context.Context, bikeID uint) (float64, error) {
	var avg *float64
	err := s.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("bike_id = ?", bikeID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
