package schengen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dispatchly/fleet-backend/internal/fleet"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements every collaborator interface the engine needs on top
// of the fleet tables and schengen.day_presences.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) *GormStore {
	return &GormStore{db: d}
}

func (s *GormStore) ListPositions(ctx context.Context, driverID uuid.UUID, from, to time.Time) ([]PositionSample, error) {
	var rows []fleet.Position
	if err := s.db.WithContext(ctx).
		Select("latitude", "longitude", "recorded_at").
		Where("driver_id = ? AND recorded_at BETWEEN ? AND ?", driverID, from, to).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]PositionSample, len(rows))
	for i, r := range rows {
		out[i] = PositionSample{Latitude: r.Latitude, Longitude: r.Longitude, RecordedAt: r.RecordedAt}
	}
	return out, nil
}

// UpsertFact replaces in_region and sample_count for (driver, date) in one
// INSERT ... ON CONFLICT statement.
func (s *GormStore) UpsertFact(ctx context.Context, driverID uuid.UUID, fact DayFact) error {
	row := DayPresence{
		ID:          uuid.New(),
		DriverID:    driverID,
		Date:        fact.Date.Anchor(),
		InRegion:    fact.InRegion,
		SampleCount: int64(fact.SampleCount),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "driver_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"in_region", "sample_count", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) ListFacts(ctx context.Context, driverID uuid.UUID, from, to CivilDate) ([]DayFact, error) {
	var rows []DayPresence
	if err := s.db.WithContext(ctx).
		Where("driver_id = ? AND date BETWEEN ? AND ?", driverID, from.Anchor(), to.Anchor()).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DayFact, len(rows))
	for i, r := range rows {
		out[i] = r.Fact()
	}
	return out, nil
}

func (s *GormStore) ListFactsForDrivers(ctx context.Context, driverIDs []uuid.UUID, from, to CivilDate) (map[uuid.UUID][]DayFact, error) {
	ids := make([]string, len(driverIDs))
	for i, id := range driverIDs {
		ids[i] = id.String()
	}

	var rows []DayPresence
	if err := s.db.WithContext(ctx).Raw(`
		SELECT driver_id, date, in_region, sample_count
		FROM schengen.day_presences
		WHERE driver_id = ANY(?::uuid[]) AND date BETWEEN ? AND ?
		ORDER BY driver_id, date
	`, pq.Array(ids), from.Anchor(), to.Anchor()).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]DayFact, len(driverIDs))
	for _, r := range rows {
		out[r.DriverID] = append(out[r.DriverID], r.Fact())
	}
	return out, nil
}

func (s *GormStore) GetOverride(ctx context.Context, driverID uuid.UUID) (*ManualOverride, error) {
	var d fleet.Driver
	err := s.db.WithContext(ctx).
		Select("id", "schengen_manual_remaining_days", "schengen_manual_as_of").
		First(&d, "id = ?", driverID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, err
	}
	return overrideOf(d), nil
}

// PutOverride writes both override columns; a nil override sets them NULL.
func (s *GormStore) PutOverride(ctx context.Context, driverID uuid.UUID, o *ManualOverride) error {
	updates := map[string]any{
		"schengen_manual_remaining_days": nil,
		"schengen_manual_as_of":          nil,
	}
	if o != nil {
		updates["schengen_manual_remaining_days"] = int16(o.RemainingDays)
		updates["schengen_manual_as_of"] = o.AsOf.Anchor()
	}
	tx := s.db.WithContext(ctx).Model(&fleet.Driver{}).Where("id = ?", driverID).Updates(updates)
	if tx.Error != nil {
		return fmt.Errorf("update override: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrDriverNotFound
	}
	return nil
}

func (s *GormStore) ListDrivers(ctx context.Context) ([]DriverRef, error) {
	var drivers []fleet.Driver
	if err := s.db.WithContext(ctx).Order("last_name, first_name").Find(&drivers).Error; err != nil {
		return nil, err
	}
	out := make([]DriverRef, len(drivers))
	for i, d := range drivers {
		out[i] = DriverRef{
			ID:          d.ID,
			Name:        d.FullName(),
			Email:       d.Email,
			Status:      d.Status,
			TruckNumber: d.TruckNumber,
			Override:    overrideOf(d),
		}
	}
	return out, nil
}

// overrideOf reads the override columns; a half-set pair counts as unset.
func overrideOf(d fleet.Driver) *ManualOverride {
	if d.SchengenManualRemainingDays == nil || d.SchengenManualAsOf == nil {
		return nil
	}
	return &ManualOverride{
		RemainingDays: uint8(*d.SchengenManualRemainingDays),
		AsOf:          DateOf(*d.SchengenManualAsOf),
	}
}
