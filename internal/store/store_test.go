package store

import (
	"context"
	"errors"
	"testing"

	"github.com/citycycle/citycycle-bot/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.BikeType{},
		&models.Station{},
		&models.Bike{},
		&models.Rental{},
		&models.Review{},
		&models.Payment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return New(db), db
}

type fixture struct {
	user     models.User
	bikeType models.BikeType
	stationA models.Station
	stationB models.Station
	bike     models.Bike
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	f := fixture{
		user:     models.User{ID: 100, FullName: "Test Rider", Username: "rider", Role: string(models.UserRoleUser)},
		bikeType: models.BikeType{Name: "City", PricePerHour: 4},
		stationA: models.Station{Name: "Central Park", Address: "1 Park Ave"},
		stationB: models.Station{Name: "Riverside", Address: "14 Embankment St"},
	}
	for _, row := range []interface{}{&f.user, &f.bikeType, &f.stationA, &f.stationB} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to seed fixture: %v", err)
		}
	}

	f.bike = models.Bike{TypeID: f.bikeType.ID, StationID: &f.stationA.ID, Status: models.BikeStatusAvailable}
	if err := db.Create(&f.bike).Error; err != nil {
		t.Fatalf("failed to seed bike: %v", err)
	}
	return f
}

func TestOpenRental(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the bike rented and clears its station", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		rentalID, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID)
		if err != nil {
			t.Fatalf("OpenRental returned error: %v", err)
		}
		if rentalID == 0 {
			t.Fatalf("expected a rental id")
		}

		var bike models.Bike
		if err := db.First(&bike, f.bike.ID).Error; err != nil {
			t.Fatalf("failed to reload bike: %v", err)
		}
		if bike.Status != models.BikeStatusRented {
			t.Fatalf("expected bike status %q, got %q", models.BikeStatusRented, bike.Status)
		}
		if bike.StationID != nil {
			t.Fatalf("expected bike station to be cleared, got %v", *bike.StationID)
		}

		rental, err := s.OpenRentalForBike(ctx, f.bike.ID)
		if err != nil {
			t.Fatalf("OpenRentalForBike returned error: %v", err)
		}
		if !rental.IsOpen() {
			t.Fatalf("expected the rental to be open")
		}
		if rental.StartStationID != f.stationA.ID {
			t.Fatalf("expected start station %d, got %d", f.stationA.ID, rental.StartStationID)
		}
	})

	t.Run("rejects a rented bike without writing anything", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		if _, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID); err != nil {
			t.Fatalf("first OpenRental returned error: %v", err)
		}

		_, err := s.OpenRental(ctx, 200, f.bike.ID, f.stationA.ID)
		if !errors.Is(err, ErrBikeUnavailable) {
			t.Fatalf("expected ErrBikeUnavailable, got %v", err)
		}

		var rentals int64
		if err := db.Model(&models.Rental{}).Count(&rentals).Error; err != nil {
			t.Fatalf("failed to count rentals: %v", err)
		}
		if rentals != 1 {
			t.Fatalf("expected 1 rental, got %d", rentals)
		}
	})

	t.Run("rejects an unknown bike", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		_, err := s.OpenRental(ctx, f.user.ID, 999, f.stationA.ID)
		if !errors.Is(err, ErrBikeNotFound) {
			t.Fatalf("expected ErrBikeNotFound, got %v", err)
		}
	})
}

func TestCloseRental(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps the rental, moves the bike and raises a payment", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		rentalID, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID)
		if err != nil {
			t.Fatalf("OpenRental returned error: %v", err)
		}

		if err := s.CloseRental(ctx, rentalID, f.stationB.ID); err != nil {
			t.Fatalf("CloseRental returned error: %v", err)
		}

		var rental models.Rental
		if err := db.First(&rental, rentalID).Error; err != nil {
			t.Fatalf("failed to reload rental: %v", err)
		}
		if rental.EndTime == nil {
			t.Fatalf("expected end time to be set")
		}
		if rental.EndStationID == nil || *rental.EndStationID != f.stationB.ID {
			t.Fatalf("expected end station %d, got %v", f.stationB.ID, rental.EndStationID)
		}

		var bike models.Bike
		if err := db.First(&bike, f.bike.ID).Error; err != nil {
			t.Fatalf("failed to reload bike: %v", err)
		}
		if bike.Status != models.BikeStatusAvailable {
			t.Fatalf("expected bike to be available again, got %q", bike.Status)
		}
		if bike.StationID == nil || *bike.StationID != f.stationB.ID {
			t.Fatalf("expected bike at station %d, got %v", f.stationB.ID, bike.StationID)
		}

		var payment models.Payment
		if err := db.Where("rental_id = ?", rentalID).First(&payment).Error; err != nil {
			t.Fatalf("failed to load payment: %v", err)
		}
		if payment.Status != models.PaymentStatusPending {
			t.Fatalf("expected pending payment, got %q", payment.Status)
		}
		// A just-opened rental is billed the minimum of one hour.
		if payment.Amount != f.bikeType.PricePerHour {
			t.Fatalf("expected amount %.2f, got %.2f", f.bikeType.PricePerHour, payment.Amount)
		}
	})

	t.Run("rejects an unknown rental without side effects", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		err := s.CloseRental(ctx, 999, f.stationB.ID)
		if !errors.Is(err, ErrRentalNotFound) {
			t.Fatalf("expected ErrRentalNotFound, got %v", err)
		}

		var payments int64
		if err := db.Model(&models.Payment{}).Count(&payments).Error; err != nil {
			t.Fatalf("failed to count payments: %v", err)
		}
		if payments != 0 {
			t.Fatalf("expected no payments, got %d", payments)
		}
	})

	t.Run("rejects a second close", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		rentalID, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID)
		if err != nil {
			t.Fatalf("OpenRental returned error: %v", err)
		}
		if err := s.CloseRental(ctx, rentalID, f.stationB.ID); err != nil {
			t.Fatalf("CloseRental returned error: %v", err)
		}

		if err := s.CloseRental(ctx, rentalID, f.stationA.ID); !errors.Is(err, ErrRentalClosed) {
			t.Fatalf("expected ErrRentalClosed, got %v", err)
		}
	})

	t.Run("rejects an unknown end station and leaves the rental open", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		rentalID, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID)
		if err != nil {
			t.Fatalf("OpenRental returned error: %v", err)
		}

		if err := s.CloseRental(ctx, rentalID, 999); !errors.Is(err, ErrStationNotFound) {
			t.Fatalf("expected ErrStationNotFound, got %v", err)
		}

		var rental models.Rental
		if err := db.First(&rental, rentalID).Error; err != nil {
			t.Fatalf("failed to reload rental: %v", err)
		}
		if !rental.IsOpen() {
			t.Fatalf("expected the rental to stay open")
		}
	})
}

func TestCancelRental(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	f := seedFixture(t, db)

	rentalID, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID)
	if err != nil {
		t.Fatalf("OpenRental returned error: %v", err)
	}

	if err := s.CancelRental(ctx, rentalID); err != nil {
		t.Fatalf("CancelRental returned error: %v", err)
	}

	if _, err := s.OpenRentalForBike(ctx, f.bike.ID); !errors.Is(err, ErrRentalNotFound) {
		t.Fatalf("expected the open rental to be gone, got %v", err)
	}

	var bike models.Bike
	if err := db.First(&bike, f.bike.ID).Error; err != nil {
		t.Fatalf("failed to reload bike: %v", err)
	}
	if bike.Status != models.BikeStatusAvailable {
		t.Fatalf("expected bike to be available again, got %q", bike.Status)
	}
	if bike.StationID == nil || *bike.StationID != f.stationA.ID {
		t.Fatalf("expected bike back at station %d, got %v", f.stationA.ID, bike.StationID)
	}
}

func TestReviews(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects out-of-range ratings", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		for _, rating := range []int{0, 6, -1} {
			if err := s.AddReview(ctx, f.user.ID, f.bike.ID, rating, nil); !errors.Is(err, ErrInvalidRating) {
				t.Fatalf("rating %d: expected ErrInvalidRating, got %v", rating, err)
			}
		}
	})

	t.Run("averages stored ratings", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		comment := "smooth ride"
		if err := s.AddReview(ctx, f.user.ID, f.bike.ID, 5, &comment); err != nil {
			t.Fatalf("AddReview returned error: %v", err)
		}
		if err := s.AddReview(ctx, f.user.ID, f.bike.ID, 3, nil); err != nil {
			t.Fatalf("AddReview returned error: %v", err)
		}

		avg, err := s.AverageRating(ctx, f.bike.ID)
		if err != nil {
			t.Fatalf("AverageRating returned error: %v", err)
		}
		if avg != 4 {
			t.Fatalf("expected average 4, got %v", avg)
		}
	})

	t.Run("returns zero for an unreviewed bike", func(t *testing.T) {
		s, db := newTestStore(t)
		f := seedFixture(t, db)

		avg, err := s.AverageRating(ctx, f.bike.ID)
		if err != nil {
			t.Fatalf("AverageRating returned error: %v", err)
		}
		if avg != 0 {
			t.Fatalf("expected 0, got %v", avg)
		}
	})
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)

	user := models.User{ID: 42, FullName: "New Rider", Username: "newrider"}
	if err := s.CreateUserIfAbsent(ctx, &user); err != nil {
		t.Fatalf("CreateUserIfAbsent returned error: %v", err)
	}

	// A second call with different data must not overwrite the row.
	again := models.User{ID: 42, FullName: "Other Name"}
	if err := s.CreateUserIfAbsent(ctx, &again); err != nil {
		t.Fatalf("second CreateUserIfAbsent returned error: %v", err)
	}

	var stored models.User
	if err := db.First(&stored, 42).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if stored.FullName != "New Rider" {
		t.Fatalf("expected original name to survive, got %q", stored.FullName)
	}
	if stored.Role != string(models.UserRoleUser) {
		t.Fatalf("expected default role, got %q", stored.Role)
	}

	isAdmin, err := s.IsAdmin(ctx, 42)
	if err != nil {
		t.Fatalf("IsAdmin returned error: %v", err)
	}
	if isAdmin {
		t.Fatalf("expected a plain user")
	}

	admin := models.User{ID: 1, Username: "boss", Role: string(models.UserRoleAdmin), Password: "secret"}
	if err := admin.HashPassword(); err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if err := s.CreateUserIfAbsent(ctx, &admin); err != nil {
		t.Fatalf("CreateUserIfAbsent returned error: %v", err)
	}

	got, err := s.GetAdminByUsername(ctx, "boss")
	if err != nil {
		t.Fatalf("GetAdminByUsername returned error: %v", err)
	}
	if err := got.CheckPassword("secret"); err != nil {
		t.Fatalf("expected the password to verify: %v", err)
	}
	if err := got.CheckPassword("wrong"); err == nil {
		t.Fatalf("expected a wrong password to fail")
	}
}

func TestAddBike(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	f := seedFixture(t, db)

	t.Run("creates an available bike at the station", func(t *testing.T) {
		bike, err := s.AddBike(ctx, f.bikeType.ID, f.stationB.ID)
		if err != nil {
			t.Fatalf("AddBike returned error: %v", err)
		}
		if bike.Status != models.BikeStatusAvailable {
			t.Fatalf("expected an available bike, got %q", bike.Status)
		}
		if bike.StationID == nil || *bike.StationID != f.stationB.ID {
			t.Fatalf("expected station %d, got %v", f.stationB.ID, bike.StationID)
		}
	})

	t.Run("rejects an unknown station", func(t *testing.T) {
		if _, err := s.AddBike(ctx, f.bikeType.ID, 999); !errors.Is(err, ErrStationNotFound) {
			t.Fatalf("expected ErrStationNotFound, got %v", err)
		}
	})
}

func TestListAvailableBikes(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	f := seedFixture(t, db)

	bikes, err := s.ListAvailableBikes(ctx)
	if err != nil {
		t.Fatalf("ListAvailableBikes returned error: %v", err)
	}
	if len(bikes) != 1 {
		t.Fatalf("expected 1 bike, got %d", len(bikes))
	}
	if bikes[0].Type.Name != f.bikeType.Name {
		t.Fatalf("expected type preloaded, got %q", bikes[0].Type.Name)
	}
	if bikes[0].Station == nil || bikes[0].Station.Name != f.stationA.Name {
		t.Fatalf("expected station preloaded")
	}

	if _, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID); err != nil {
		t.Fatalf("OpenRental returned error: %v", err)
	}

	bikes, err = s.ListAvailableBikes(ctx)
	if err != nil {
		t.Fatalf("ListAvailableBikes returned error: %v", err)
	}
	if len(bikes) != 0 {
		t.Fatalf("expected no bikes while rented, got %d", len(bikes))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	f := seedFixture(t, db)

	rentalID, err := s.OpenRental(ctx, f.user.ID, f.bike.ID, f.stationA.ID)
	if err != nil {
		t.Fatalf("OpenRental returned error: %v", err)
	}
	if err := s.CloseRental(ctx, rentalID, f.stationB.ID); err != nil {
		t.Fatalf("CloseRental returned error: %v", err)
	}
	if err := s.AddReview(ctx, f.user.ID, f.bike.ID, 4, nil); err != nil {
		t.Fatalf("AddReview returned error: %v", err)
	}

	t.Run("rentals per day", func(t *testing.T) {
		rows, err := s.RentalsPerDay(ctx, 7)
		if err != nil {
			t.Fatalf("RentalsPerDay returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].Count != 1 {
			t.Fatalf("expected one day with one rental, got %+v", rows)
		}
	})

	t.Run("income counts only completed payments", func(t *testing.T) {
		rows, err := s.IncomePerDay(ctx, 30)
		if err != nil {
			t.Fatalf("IncomePerDay returned error: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("expected no income while the payment is pending, got %+v", rows)
		}

		err = db.Model(&models.Payment{}).
			Where("rental_id = ?", rentalID).
			Update("status", models.PaymentStatusCompleted).Error
		if err != nil {
			t.Fatalf("failed to complete payment: %v", err)
		}

		rows, err = s.IncomePerDay(ctx, 30)
		if err != nil {
			t.Fatalf("IncomePerDay returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].Amount != f.bikeType.PricePerHour {
			t.Fatalf("expected one day with amount %.2f, got %+v", f.bikeType.PricePerHour, rows)
		}
	})

	t.Run("rating distribution", func(t *testing.T) {
		rows, err := s.RatingDistribution(ctx, f.bike.ID)
		if err != nil {
			t.Fatalf("RatingDistribution returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].Rating != 4 || rows[0].Count != 1 {
			t.Fatalf("unexpected distribution: %+v", rows)
		}
	})

	t.Run("station activity ranks start stations", func(t *testing.T) {
		rows, err := s.StationActivity(ctx, 5)
		if err != nil {
			t.Fatalf("StationActivity returned error: %v", err)
		}
		if len(rows) != 1 || rows[0].Name != f.stationA.Name {
			t.Fatalf("unexpected activity: %+v", rows)
		}
	})
}

func TestUserRentalsOrdering(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	f := seedFixture(t, db)

	var bikeIDs []uint
	for i := 0; i < 3; i++ {
		bike, err := s.AddBike(ctx, f.bikeType.ID, f.stationA.ID)
		if err != nil {
			t.Fatalf("AddBike returned error: %v", err)
		}
		bikeIDs = append(bikeIDs, bike.ID)
	}

	for _, bikeID := range bikeIDs {
		rentalID, err := s.OpenRental(ctx, f.user.ID, bikeID, f.stationA.ID)
		if err != nil {
			t.Fatalf("OpenRental returned error: %v", err)
		}
		if err := s.CloseRental(ctx, rentalID, f.stationB.ID); err != nil {
			t.Fatalf("CloseRental returned error: %v", err)
		}
	}

	rentals, err := s.UserRentals(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("UserRentals returned error: %v", err)
	}
	if len(rentals) != 3 {
		t.Fatalf("expected 3 rentals, got %d", len(rentals))
	}
	for i := 1; i < len(rentals); i++ {
		if rentals[i].StartTime.After(rentals[i-1].StartTime) {
			t.Fatalf("expected newest first at index %d", i)
		}
	}
	if rentals[0].StartStation.Name != f.stationA.Name {
		t.Fatalf("expected start station preloaded")
	}
}
