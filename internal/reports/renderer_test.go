package reports

import (
	"errors"
	"os"
	"testing"

	"github.com/citycycle/citycycle-bot/internal/store"
)

func assertPNG(t *testing.T, path string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat chart: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected a non-empty chart file")
	}
}

func TestRenderer(t *testing.T) {
	r := New(t.TempDir())

	t.Run("rentals bar chart", func(t *testing.T) {
		path, err := r.RentalsPerDay([]store.DailyCount{
			{Day: "2026-08-24", Count: 3},
			{Day: "2026-08-25", Count: 1},
			{Day: "2026-08-26", Count: 5},
		})
		assertPNG(t, path, err)
	})

	t.Run("income line chart", func(t *testing.T) {
		path, err := r.IncomePerDay([]store.DailyAmount{
			{Day: "2026-08-01", Amount: 12.5},
			{Day: "2026-08-02", Amount: 40},
			{Day: "2026-08-03", Amount: 8},
		})
		assertPNG(t, path, err)
	})

	t.Run("income renders a single day", func(t *testing.T) {
		path, err := r.IncomePerDay([]store.DailyAmount{{Day: "2026-08-30", Amount: 20}})
		assertPNG(t, path, err)
	})

	t.Run("income rejects malformed days", func(t *testing.T) {
		_, err := r.IncomePerDay([]store.DailyAmount{{Day: "yesterday", Amount: 1}})
		if err == nil {
			t.Fatalf("expected an error for a malformed day")
		}
	})

	t.Run("ratings pie chart", func(t *testing.T) {
		path, err := r.RatingDistribution(7, []store.RatingCount{
			{Rating: 3, Count: 2},
			{Rating: 5, Count: 6},
		})
		assertPNG(t, path, err)
	})

	t.Run("station activity chart", func(t *testing.T) {
		path, err := r.StationActivity([]store.StationCount{
			{Name: "Central Park", Count: 9},
			{Name: "Riverside", Count: 4},
		})
		assertPNG(t, path, err)
	})

	t.Run("empty input returns ErrNoData", func(t *testing.T) {
		if _, err := r.RentalsPerDay(nil); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData, got %v", err)
		}
		if _, err := r.IncomePerDay(nil); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData, got %v", err)
		}
		if _, err := r.RatingDistribution(1, nil); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData, got %v", err)
		}
		if _, err := r.StationActivity(nil); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData, got %v", err)
		}
	})
}
