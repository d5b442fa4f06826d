package store

import (
	"context"
	"errors"

	"github.com/citycycle/citycycle-bot/internal/models"
	"gorm.io/gorm"
)

var (
	ErrBikeNotFound    = errors.New("bike not found")
	ErrBikeUnavailable = errors.New("bike is not available")
	ErrStationNotFound = errors.New("station not found")
	ErrRentalNotFound  = errors.New("rental not found")
	ErrRentalClosed    = errors.New("rental is already closed")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

// Store is the persistence gateway: every database operation the bot and
// the HTTP API need, on top of a single gorm connection pool.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListAvailableBikes returns bikes in available status with their type and
// station preloaded, ordered by id.
func (s *Store) ListAvailableBikes(ctx context.Context) ([]models.Bike, error) {
	var bikes []models.Bike
	err := s.db.WithContext(ctx).
		Where("status = ?", models.BikeStatusAvailable).
		Preload("Type").
		Preload("Station").
		Order("id").
		Find(&bikes).Error
	if err != nil {
		return nil, err
	}
	return bikes, nil
}

// GetBike returns a bike with its type and station, or ErrBikeNotFound.
func (s *Store) GetBike(ctx context.Context, bikeID uint) (*models.Bike, error) {
	var bike models.Bike
	err := s.db.WithContext(ctx).
		Preload("Type").
		Preload("Station").
		First(&bike, bikeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBikeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bike, nil
}

func (s *Store) StationExists(ctx context.Context, stationID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Station{}).
		Where("id = ?", stationID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUserIfAbsent inserts the user unless the id is already known.
func (s *Store) CreateUserIfAbsent(ctx context.Context, user *models.User) error {
	exists, err := s.UserExists(ctx, user.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if user.Role == "" {
		user.Role = string(models.UserRoleUser)
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// IsAdmin reports whether the user exists and carries the admin role.
func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND role = ?", userID, models.UserRoleAdmin).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetAdminByUsername looks up an admin account for the HTTP API login.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND role = ?", username, models.UserRoleAdmin).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListBikeTypes returns the catalog of bike types.
func (s *Store) ListBikeTypes(ctx context.Context) ([]models.BikeType, error) {
	var types []models.BikeType
	if err := s.db.WithContext(ctx).Order("id").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (s *Store) GetBikeTypeByName(ctx context.Context, name string) (*models.BikeType, error) {
	var bt models.BikeType
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&bt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bt, nil
}

// ListStations returns all stations.
func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	if err := s.db.WithContext(ctx).Order("id").Find(&stations).Error; err != nil {
		return nil, err
	}
	return stations, nil
}

func (s *Store) GetStationByName(ctx context.Context, name string) (*models.Station, error) {
	var st models.Station
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// AddBike inserts a new bike in available status at the given station.
func (s *Store) AddBike(ctx context.Context, typeID, stationID uint) (*models.Bike, error) {
	exists, err := s.StationExists(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrStationNotFound
	}

	bike := models.Bike{
		TypeID:    typeID,
		StationID: &stationID,
		Status:    models.BikeStatusAvailable,
	}
	if err := s.db.WithContext(ctx).Create(&bike).Error; err != nil {
		return nil, err
	}
	return &bike, nil
}
