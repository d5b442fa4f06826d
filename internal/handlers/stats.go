package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/citycycle/citycycle-bot/internal/reports"
	"github.com/citycycle/citycycle-bot/internal/services"
	"github.com/citycycle/citycycle-bot/internal/store"
	"github.com/gin-gonic/gin"
)

const statsCacheTTL = 5 * time.Minute

// GetRentalsStats returns rentals-per-day rows, or the chart itself with
// ?format=png.
func GetRentalsStats(db *store.Store, renderer *reports.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		days := intQuery(c, "days", 7)

		var rows []store.DailyCount
		if ok, _ := services.CachedReport(ctx, services.ReportKeyRentals, &rows); !ok || days != 7 {
			var err error
			rows, err = db.RentalsPerDay(ctx, days)
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to load rentals stats"})
				return
			}
			if days == 7 {
				services.CacheReport(ctx, services.ReportKeyRentals, rows, statsCacheTTL)
			}
		}

		if c.Query("format") == "png" {
			servePNG(c, func() (string, error) { return renderer.RentalsPerDay(rows) })
			return
		}
		c.JSON(200, gin.H{"days": days, "rentals": rows})
	}
}

// GetIncomeStats returns income-per-day rows, or the chart with ?format=png.
func GetIncomeStats(db *store.Store, renderer *reports.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		days := intQuery(c, "days", 30)

		var rows []store.DailyAmount
		if ok, _ := services.CachedReport(ctx, services.ReportKeyIncome, &rows); !ok || days != 30 {
			var err error
			rows, err = db.IncomePerDay(ctx, days)
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to load income stats"})
				return
			}
			if days == 30 {
				services.CacheReport(ctx, services.ReportKeyIncome, rows, statsCacheTTL)
			}
		}

		if c.Query("format") == "png" {
			servePNG(c, func() (string, error) { return renderer.IncomePerDay(rows) })
			return
		}
		c.JSON(200, gin.H{"days": days, "income": rows})
	}
}

// GetRatingsStats returns the rating distribution for one bike.
func GetRatingsStats(db *store.Store, renderer *reports.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		bikeID, err := strconv.ParseUint(c.Param("bikeId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid bike id"})
			return
		}

		rows, err := db.RatingDistribution(c.Request.Context(), uint(bikeID))
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to load ratings"})
			return
		}

		if c.Query("format") == "png" {
			servePNG(c, func() (string, error) { return renderer.RatingDistribution(uint(bikeID), rows) })
			return
		}

		average, err := db.AverageRating(c.Request.Context(), uint(bikeID))
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to load ratings"})
			return
		}
		c.JSON(200, gin.H{"bikeId": bikeID, "average": average, "ratings": rows})
	}
}

// GetStationsStats returns the busiest start stations.
func GetStationsStats(db *store.Store, renderer *reports.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := intQuery(c, "limit", 5)

		rows, err := db.StationActivity(c.Request.Context(), limit)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to load station stats"})
			return
		}

		if c.Query("format") == "png" {
			servePNG(c, func() (string, error) { return renderer.StationActivity(rows) })
			return
		}
		c.JSON(200, gin.H{"limit": limit, "stations": rows})
	}
}

func servePNG(c *gin.Context, render func() (string, error)) {
	path, err := render()
	if errors.Is(err, reports.ErrNoData) {
		c.JSON(404, gin.H{"error": "No data for this report"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to render chart"})
		return
	}

	if url, err := services.UploadChart(path); err == nil && url != "" {
		c.Header("X-Chart-URL", url)
	}
	c.File(path)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
