package schengen_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dispatchly/fleet-backend/internal/db"
	"github.com/dispatchly/fleet-backend/internal/fleet"
	"github.com/dispatchly/fleet-backend/internal/geofence"
	"github.com/dispatchly/fleet-backend/internal/schengen"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
)

// dbAvailable tracks whether the database connection was established.
var dbAvailable bool

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// No database available; integration tests skip themselves.
		os.Exit(m.Run())
	}

	db.Connect(databaseURL)
	dbAvailable = true
	fleet.Init()
	schengen.Init()

	os.Exit(m.Run())
}

// createTestDriver inserts a driver and removes it with its rows on cleanup.
func createTestDriver(t *testing.T) uuid.UUID {
	t.Helper()
	if !dbAvailable {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}

	id := uuid.New()
	d := fleet.Driver{
		ID:        id,
		FirstName: "Test",
		LastName:  "Driver " + id.String()[:8],
		Email:     fmt.Sprintf("driver_%s@example.com", id.String()[:8]),
	}
	if err := db.DB.Create(&d).Error; err != nil {
		t.Fatalf("create driver: %v", err)
	}
	t.Cleanup(func() {
		db.DB.Where("driver_id = ?", id).Delete(&schengen.DayPresence{})
		db.DB.Where("driver_id = ?", id).Delete(&fleet.Position{})
		db.DB.Delete(&fleet.Driver{}, "id = ?", id)
	})
	return id
}

func TestGormStore_UpsertReplaces(t *testing.T) {
	id := createTestDriver(t)
	store := schengen.NewGormStore(db.DB)
	ctx := context.Background()
	day := schengen.CivilDate{Year: 2025, Month: time.March, Day: 3}

	if err := store.UpsertFact(ctx, id, schengen.DayFact{Date: day, InRegion: true, SampleCount: 9}); err != nil {
		t.Fatalf("UpsertFact: %v", err)
	}
	if err := store.UpsertFact(ctx, id, schengen.DayFact{Date: day, InRegion: false, SampleCount: 2}); err != nil {
		t.Fatalf("UpsertFact (replace): %v", err)
	}

	facts, err := store.ListFacts(ctx, id, day.AddDays(-1), day.AddDays(1))
	if err != nil {
		t.Fatalf("ListFacts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("facts = %+v, want exactly one row", facts)
	}
	if facts[0].Date != day || facts[0].InRegion || facts[0].SampleCount != 2 {
		t.Errorf("fact = %+v, want replaced values", facts[0])
	}

	batch, err := store.ListFactsForDrivers(ctx, []uuid.UUID{id, uuid.New()}, day, day)
	if err != nil {
		t.Fatalf("ListFactsForDrivers: %v", err)
	}
	if len(batch[id]) != 1 {
		t.Errorf("batch = %+v", batch)
	}
}

func TestGormStore_Overrides(t *testing.T) {
	id := createTestDriver(t)
	store := schengen.NewGormStore(db.DB)
	ctx := context.Background()

	if o, err := store.GetOverride(ctx, id); err != nil || o != nil {
		t.Fatalf("fresh driver override = %+v, %v", o, err)
	}

	want := schengen.ManualOverride{RemainingDays: 40, AsOf: schengen.CivilDate{Year: 2025, Month: time.May, Day: 10}}
	if err := store.PutOverride(ctx, id, &want); err != nil {
		t.Fatalf("PutOverride: %v", err)
	}
	got, err := store.GetOverride(ctx, id)
	if err != nil || got == nil || *got != want {
		t.Fatalf("GetOverride = %+v, %v; want %+v", got, err, want)
	}

	refs, err := store.ListDrivers(ctx)
	if err != nil {
		t.Fatalf("ListDrivers: %v", err)
	}
	found := false
	for _, r := range refs {
		if r.ID == id {
			found = r.Override != nil && *r.Override == want
		}
	}
	if !found {
		t.Error("ListDrivers should include the driver with its override")
	}

	if err := store.PutOverride(ctx, id, nil); err != nil {
		t.Fatalf("PutOverride(nil): %v", err)
	}
	if o, _ := store.GetOverride(ctx, id); o != nil {
		t.Errorf("override not cleared: %+v", o)
	}

	if _, err := store.GetOverride(ctx, uuid.New()); !errors.Is(err, schengen.ErrDriverNotFound) {
		t.Errorf("unknown driver: %v", err)
	}
	if err := store.PutOverride(ctx, uuid.New(), nil); !errors.Is(err, schengen.ErrDriverNotFound) {
		t.Errorf("unknown driver put: %v", err)
	}
}

func TestEngine_AgainstPostgres(t *testing.T) {
	id := createTestDriver(t)
	loc, err := time.LoadLocation("Europe/Sarajevo")
	if err != nil {
		t.Fatal(err)
	}
	region, err := geofence.NewRegion("box", []orb.Ring{{{10, 40}, {20, 40}, {20, 50}, {10, 50}, {10, 40}}})
	if err != nil {
		t.Fatal(err)
	}
	store := schengen.NewGormStore(db.DB)
	engine, err := schengen.NewEngine(schengen.Options{
		Region: region, Location: loc,
		Positions: store, Facts: store, Overrides: store, Drivers: store,
	})
	if err != nil {
		t.Fatal(err)
	}

	var positions []fleet.Position
	for d := 1; d <= 10; d++ {
		lat, lon := 45.0, 15.0
		if d > 5 {
			lat, lon = 30.0, 0.0
		}
		positions = append(positions, fleet.Position{
			ID: uuid.New(), DriverID: id, Latitude: &lat, Longitude: &lon,
			RecordedAt: time.Date(2025, 3, d, 10, 0, 0, 0, loc).UTC(),
		})
	}
	if err := db.DB.Create(&positions).Error; err != nil {
		t.Fatalf("insert positions: %v", err)
	}

	ctx := context.Background()
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, loc)
	if _, err := engine.Aggregate(ctx, id, time.Date(2025, 3, 1, 0, 0, 0, 0, loc), now); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	res, err := engine.Compute(ctx, id, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.UsedDays != 5 || res.RemainingDays != 85 || res.Source != schengen.SourceMaterialized {
		t.Errorf("result = %+v, want 5/85 materialized", res)
	}
}
