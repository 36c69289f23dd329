package fleet

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dispatchly/fleet-backend/internal/db"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPositionLimit = 100
	maxPositionLimit     = 1000
	maxPositionBatch     = 5000
)

// ListDrivers returns all drivers ordered by last name.
func ListDrivers(w http.ResponseWriter, r *http.Request) {
	var drivers []Driver
	if err := db.DB.WithContext(r.Context()).Order("last_name, first_name").Find(&drivers).Error; err != nil {
		http.Error(w, "Failed to fetch drivers: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, drivers)
}

// GetDriver returns a single driver by ID.
func GetDriver(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid driver id", http.StatusBadRequest)
		return
	}

	var driver Driver
	if err := db.DB.WithContext(r.Context()).First(&driver, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Driver not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch driver: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, driver)
}

// CreateDriver registers a new driver.
func CreateDriver(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Email       string `json:"email"`
		TruckNumber string `json:"truck_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		http.Error(w, "first_name and last_name are required", http.StatusBadRequest)
		return
	}

	driver := Driver{
		ID:          uuid.New(),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       strings.TrimSpace(input.Email),
		TruckNumber: strings.TrimSpace(input.TruckNumber),
	}
	if err := db.DB.WithContext(r.Context()).Create(&driver).Error; err != nil {
		http.Error(w, "Failed to create driver: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, driver)
}

// PositionQuery is the parsed query string of GET /drivers/{id}/positions.
type PositionQuery struct {
	Start time.Time
	End   time.Time
	Limit int
}

// ParsePositionQuery reads startDate, endDate (RFC 3339) and limit. The
// window defaults to the 24 hours before now; limit defaults to 100 and is
// capped at 1000.
func ParsePositionQuery(q url.Values, now time.Time) (PositionQuery, error) {
	pq := PositionQuery{End: now, Limit: defaultPositionLimit}

	if s := q.Get("endDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return pq, fmt.Errorf("invalid endDate: %w", err)
		}
		pq.End = t
	}
	pq.Start = pq.End.Add(-24 * time.Hour)
	if s := q.Get("startDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return pq, fmt.Errorf("invalid startDate: %w", err)
		}
		pq.Start = t
	}
	if pq.Start.After(pq.End) {
		return pq, errors.New("startDate is after endDate")
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return pq, errors.New("limit must be a positive integer")
		}
		pq.Limit = min(n, maxPositionLimit)
	}
	return pq, nil
}

// ListPositions returns a driver's position history, newest first.
func ListPositions(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid driver id", http.StatusBadRequest)
		return
	}

	pq, err := ParsePositionQuery(r.URL.Query(), time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var count int64
	if err := db.DB.WithContext(ctx).Model(&Driver{}).Where("id = ?", driverID).Count(&count).Error; err != nil {
		http.Error(w, "Failed to fetch driver: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if count == 0 {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}

	var positions []Position
	if err := db.DB.WithContext(ctx).
		Where("driver_id = ? AND recorded_at BETWEEN ? AND ?", driverID, pq.Start, pq.End).
		Order("recorded_at DESC").
		Limit(pq.Limit).
		Find(&positions).Error; err != nil {
		http.Error(w, "Failed to fetch positions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"driver_id": driverID,
		"start":     pq.Start,
		"end":       pq.End,
		"count":     len(positions),
		"positions": positions,
	})
}

// PositionInput is one fix in a POST /drivers/{id}/positions batch.
type PositionInput struct {
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Speed      *float64  `json:"speed"`
	RecordedAt time.Time `json:"recorded_at"`
}

// BuildPositions validates an ingestion batch. Null coordinates are kept
// (the aggregator filters them); a missing timestamp rejects the batch.
func BuildPositions(driverID uuid.UUID, in []PositionInput) ([]Position, error) {
	if len(in) == 0 {
		return nil, errors.New("at least one position is required")
	}
	if len(in) > maxPositionBatch {
		return nil, fmt.Errorf("maximum %d positions per request", maxPositionBatch)
	}
	out := make([]Position, 0, len(in))
	for i, p := range in {
		if p.RecordedAt.IsZero() {
			return nil, fmt.Errorf("position %d: recorded_at is required", i)
		}
		out = append(out, Position{
			ID:         uuid.New(),
			DriverID:   driverID,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Speed:      p.Speed,
			RecordedAt: p.RecordedAt.UTC(),
		})
	}
	return out, nil
}

// CreatePositions stores a batch of fixes pushed by a tracker bridge.
func CreatePositions(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid driver id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 8<<20)
	var body struct {
		Positions []PositionInput `json:"positions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	positions, err := BuildPositions(driverID, body.Positions)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var count int64
	if err := db.DB.WithContext(ctx).Model(&Driver{}).Where("id = ?", driverID).Count(&count).Error; err != nil {
		http.Error(w, "Failed to fetch driver: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if count == 0 {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}

	if err := db.DB.WithContext(ctx).CreateInBatches(positions, 500).Error; err != nil {
		http.Error(w, "Failed to store positions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("[fleet] stored %d positions for driver %s", len(positions), driverID)

	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "stored": len(positions)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[fleet] encode response: %v", err)
	}
}
