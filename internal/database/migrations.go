package database

import (
	"github.com/citycycle/citycycle-bot/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.BikeType{},
		&models.Station{},
		&models.Bike{},
		&models.Rental{},
		&models.Review{},
		&models.Payment{},
	)
	if err != nil {
		return err
	}

	// Update users table
	if db.Migrator().HasTable(&models.User{}) {
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
		if err := db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('user', 'admin'))`).Error; err != nil {
			return err
		}
	}

	if db.Migrator().HasTable(&models.Bike{}) {
		db.Exec(`ALTER TABLE bikes DROP CONSTRAINT IF EXISTS bikes_status_check`)
		if err := db.Exec(`ALTER TABLE bikes ADD CONSTRAINT bikes_status_check CHECK (status IN ('available', 'rented'))`).Error; err != nil {
			return err
		}
	}

	if db.Migrator().HasTable(&models.Review{}) {
		db.Exec(`ALTER TABLE reviews DROP CONSTRAINT IF EXISTS reviews_rating_check`)
		if err := db.Exec(`ALTER TABLE reviews ADD CONSTRAINT reviews_rating_check CHECK (rating BETWEEN 1 AND 5)`).Error; err != nil {
			return err
		}
	}

	// One open rental per bike, enforced at the database as well as in the
	// open-rental transaction.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS rentals_one_open_per_bike ON rentals (bike_id) WHERE end_time IS NULL AND deleted_at IS NULL`).Error; err != nil {
		return err
	}

	return nil
}
