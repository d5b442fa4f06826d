package database

import (
	"fmt"
	"os"

	"github.com/citycycle/citycycle-bot/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedFile describes configs/seed.yaml: the catalog of bike types and
// stations the service operates with. Values may reference environment
// variables, which are expanded before parsing.
type SeedFile struct {
	BikeTypes []struct {
		Name         string  `yaml:"name"`
		PricePerHour float64 `yaml:"price_per_hour"`
	} `yaml:"bike_types"`
	Stations []struct {
		Name    string `yaml:"name"`
		Address string `yaml:"address"`
	} `yaml:"stations"`
}

// Seed upserts bike types and stations from the YAML seed file. Existing
// rows are matched by name so re-running is safe.
func Seed(db *gorm.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var seed SeedFile
	if err := yaml.Unmarshal(expanded, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, bt := range seed.BikeTypes {
		row := models.BikeType{Name: bt.Name, PricePerHour: bt.PricePerHour}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"price_per_hour"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("seed bike type %q: %w", bt.Name, err)
		}
	}

	for _, st := range seed.Stations {
		row := models.Station{Name: st.Name, Address: st.Address}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"address"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("seed station %q: %w", st.Name, err)
		}
	}

	return nil
}
