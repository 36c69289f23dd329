package seeds

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dispatchly/fleet-backend/internal/db"
	"github.com/dispatchly/fleet-backend/internal/fleet"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const fleetPath = "internal/seeds/data/fleet.json"

type seedFleet struct {
	Drivers []seedDriver `json:"drivers"`
}

type seedDriver struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	TruckNumber string     `json:"truck_number"`
	Trips       []seedTrip `json:"trips"`
}

// seedTrip is a stay of Days consecutive days starting DaysAgo days before
// the seed run, reported from a single point.
type seedTrip struct {
	DaysAgo int     `json:"days_ago"`
	Days    int     `json:"days"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func loadFleet(path string) (seedFleet, error) {
	var f seedFleet
	file, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := json.Unmarshal(file, &f); err != nil {
		return f, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

func seedDrivers(f seedFleet) error {
	created := 0
	for _, sd := range f.Drivers {
		var existing fleet.Driver
		err := db.DB.First(&existing, "id = ?", sd.ID).Error
		if err == nil {
			log.Printf("⚠️ Driver exists, skipping: %s %s", sd.FirstName, sd.LastName)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("DB error on driver %s: %w", sd.Email, err)
		}

		d := fleet.Driver{
			ID:          sd.ID,
			FirstName:   sd.FirstName,
			LastName:    sd.LastName,
			Email:       sd.Email,
			Status:      "ACTIVE",
			TruckNumber: sd.TruckNumber,
		}
		if err := db.DB.Create(&d).Error; err != nil {
			return fmt.Errorf("failed to create driver %s: %w", sd.Email, err)
		}
		created++
	}

	log.Printf("✅ Seeded %d drivers", created)
	return nil
}

// seedPositions writes one fix per trip day at noon UTC. Drivers that already
// have positions are skipped.
func seedPositions(f seedFleet, now time.Time) error {
	total := 0
	for _, sd := range f.Drivers {
		var n int64
		if err := db.DB.Model(&fleet.Position{}).Where("driver_id = ?", sd.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("count positions for %s: %w", sd.Email, err)
		}
		if n > 0 {
			log.Printf("⚠️ Positions exist for %s, skipping", sd.Email)
			continue
		}

		rows := tripPositions(sd, now)
		if len(rows) == 0 {
			continue
		}
		if err := db.DB.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("failed to create positions for %s: %w", sd.Email, err)
		}
		total += len(rows)
	}

	log.Printf("✅ Seeded %d positions", total)
	return nil
}

func tripPositions(sd seedDriver, now time.Time) []fleet.Position {
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)
	var out []fleet.Position
	for _, trip := range sd.Trips {
		for i := 0; i < trip.Days; i++ {
			at := noon.AddDate(0, 0, -trip.DaysAgo+i)
			if at.After(now) {
				break
			}
			lat, lon := trip.Lat, trip.Lon
			out = append(out, fleet.Position{
				ID:         uuid.New(),
				DriverID:   sd.ID,
				Latitude:   &lat,
				Longitude:  &lon,
				RecordedAt: at,
			})
		}
	}
	return out
}
