// Package reports renders the statistics charts served by the bot and
// the HTTP API as PNG files.
package reports

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/citycycle/citycycle-bot/internal/store"
	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoData is returned when a report has nothing to draw.
var ErrNoData = errors.New("reports: no data for period")

// Renderer writes chart PNGs into a scratch directory.
type Renderer struct {
	dir string
}

// New returns a Renderer writing into dir, or the system temp
// directory when dir is empty.
func New(dir string) *Renderer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Renderer{dir: dir}
}

// RentalsPerDay draws a bar chart of rentals started per day.
func (r *Renderer) RentalsPerDay(rows []store.DailyCount) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoData
	}

	bars := make([]chart.Value, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, chart.Value{
			Label: shortDay(row.Day),
			Value: float64(row.Count),
		})
	}

	graph := chart.BarChart{
		Title:    "Rentals per day",
		Height:   512,
		BarWidth: 40,
		Bars:     bars,
	}

	return r.save("rentals", graph.Render)
}

// IncomePerDay draws a line chart of completed payment totals per day.
func (r *Renderer) IncomePerDay(rows []store.DailyAmount) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoData
	}

	xs := make([]time.Time, 0, len(rows)+1)
	ys := make([]float64, 0, len(rows)+1)
	for _, row := range rows {
		day, err := time.Parse("2006-01-02", row.Day)
		if err != nil {
			return "", fmt.Errorf("bad report day %q: %w", row.Day, err)
		}
		xs = append(xs, day)
		ys = append(ys, row.Amount)
	}

	// A line needs two points; pad a single-day report with a zero the
	// day before.
	if len(xs) == 1 {
		xs = append([]time.Time{xs[0].AddDate(0, 0, -1)}, xs...)
		ys = append([]float64{0}, ys...)
	}

	graph := chart.Chart{
		Title:  "Income per day",
		Height: 512,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: xs,
				YValues: ys,
			},
		},
	}

	return r.save("income", graph.Render)
}

// RatingDistribution draws a pie chart of one bike's review ratings.
func (r *Renderer) RatingDistribution(bikeID uint, rows []store.RatingCount) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoData
	}

	values := make([]chart.Value, 0, len(rows))
	for _, row := range rows {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%d★ (%d)", row.Rating, row.Count),
			Value: float64(row.Count),
		})
	}

	graph := chart.PieChart{
		Title:  fmt.Sprintf("Ratings for bike %d", bikeID),
		Height: 512,
		Width:  512,
		Values: values,
	}

	return r.save(fmt.Sprintf("ratings_%d", bikeID), graph.Render)
}

// StationActivity draws a bar chart of the busiest start stations.
func (r *Renderer) StationActivity(rows []store.StationCount) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoData
	}

	bars := make([]chart.Value, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, chart.Value{
			Label: row.Name,
			Value: float64(row.Count),
		})
	}

	graph := chart.BarChart{
		Title:    "Busiest stations",
		Height:   512,
		BarWidth: 60,
		Bars:     bars,
	}

	return r.save("stations", graph.Render)
}

func (r *Renderer) save(name string, render func(chart.RendererProvider, io.Writer) error) (string, error) {
	path := filepath.Join(r.dir, fmt.Sprintf("%s_%d.png", name, time.Now().UnixNano()))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := render(chart.PNG, f); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// shortDay trims 2006-01-02 to 01-02 for bar labels.
func shortDay(day string) string {
	if len(day) == len("2006-01-02") {
		return day[5:]
	}
	return day
}
