package schengen

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dispatchly/fleet-backend/internal/geofence"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

var errStorage = errors.New("storage unavailable")

func sarajevo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Sarajevo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

// testRegion is a box spanning lon 10..20, lat 40..50.
func testRegion(t *testing.T) *geofence.Region {
	t.Helper()
	r, err := geofence.NewRegion("test", []orb.Ring{
		{{10, 40}, {20, 40}, {20, 50}, {10, 50}, {10, 40}},
	})
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	return r
}

func inside(at time.Time) PositionSample  { return sample(45, 15, at) }
func outside(at time.Time) PositionSample { return sample(30, 0, at) }

func sample(lat, lon float64, at time.Time) PositionSample {
	return PositionSample{Latitude: &lat, Longitude: &lon, RecordedAt: at}
}

// fakePositions serves samples filtered by [from, to].
type fakePositions struct {
	mu      sync.Mutex
	samples map[uuid.UUID][]PositionSample
	fail    map[uuid.UUID]bool
	calls   int
}

func newFakePositions() *fakePositions {
	return &fakePositions{samples: map[uuid.UUID][]PositionSample{}, fail: map[uuid.UUID]bool{}}
}

func (f *fakePositions) add(driverID uuid.UUID, s ...PositionSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[driverID] = append(f.samples[driverID], s...)
}

func (f *fakePositions) ListPositions(_ context.Context, driverID uuid.UUID, from, to time.Time) ([]PositionSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[driverID] {
		return nil, errStorage
	}
	var out []PositionSample
	for _, s := range f.samples[driverID] {
		if !s.RecordedAt.Before(from) && !s.RecordedAt.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeFacts is an in-memory FactStore keyed by (driver, date).
type fakeFacts struct {
	mu      sync.Mutex
	facts   map[uuid.UUID]map[CivilDate]DayFact
	upserts int
}

func newFakeFacts() *fakeFacts {
	return &fakeFacts{facts: map[uuid.UUID]map[CivilDate]DayFact{}}
}

func (f *fakeFacts) put(driverID uuid.UUID, facts ...DayFact) {
	for _, fact := range facts {
		_ = f.UpsertFact(context.Background(), driverID, fact)
	}
	f.upserts = 0
}

func (f *fakeFacts) UpsertFact(_ context.Context, driverID uuid.UUID, fact DayFact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.facts[driverID] == nil {
		f.facts[driverID] = map[CivilDate]DayFact{}
	}
	f.facts[driverID][fact.Date] = fact
	f.upserts++
	return nil
}

func (f *fakeFacts) ListFacts(_ context.Context, driverID uuid.UUID, from, to CivilDate) ([]DayFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []DayFact
	for d, fact := range f.facts[driverID] {
		if d.Within(from, to) {
			out = append(out, fact)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeFacts) get(driverID uuid.UUID, d CivilDate) (DayFact, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fact, ok := f.facts[driverID][d]
	return fact, ok
}

// batchFacts adds BatchFactReader to fakeFacts.
type batchFacts struct {
	*fakeFacts
	batchCalls int
}

func (b *batchFacts) ListFactsForDrivers(ctx context.Context, ids []uuid.UUID, from, to CivilDate) (map[uuid.UUID][]DayFact, error) {
	b.batchCalls++
	out := make(map[uuid.UUID][]DayFact, len(ids))
	for _, id := range ids {
		facts, _ := b.ListFacts(ctx, id, from, to)
		out[id] = facts
	}
	return out, nil
}

// fakeDirectory implements OverrideStore and DriverDirectory.
type fakeDirectory struct {
	mu      sync.Mutex
	drivers []DriverRef
}

func (d *fakeDirectory) add(ref DriverRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drivers = append(d.drivers, ref)
}

func (d *fakeDirectory) GetOverride(_ context.Context, id uuid.UUID) (*ManualOverride, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ref := range d.drivers {
		if ref.ID == id {
			return ref.Override, nil
		}
	}
	return nil, ErrDriverNotFound
}

func (d *fakeDirectory) PutOverride(_ context.Context, id uuid.UUID, o *ManualOverride) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.drivers {
		if d.drivers[i].ID == id {
			d.drivers[i].Override = o
			return nil
		}
	}
	return ErrDriverNotFound
}

func (d *fakeDirectory) ListDrivers(context.Context) ([]DriverRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DriverRef, len(d.drivers))
	copy(out, d.drivers)
	return out, nil
}

// recordingCache is an in-memory ResultCache.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]map[CivilDate]ComplianceResult
	generations map[uuid.UUID]uint64
	invalidated []uuid.UUID
	rejected    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries:     map[uuid.UUID]map[CivilDate]ComplianceResult{},
		generations: map[uuid.UUID]uint64{},
	}
}

func (c *recordingCache) Get(_ context.Context, id uuid.UUID, day CivilDate) (*ComplianceResult, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generations[id]
	res, ok := c.entries[id][day]
	if !ok {
		return nil, gen, nil
	}
	return &res, gen, nil
}

func (c *recordingCache) Put(_ context.Context, res ComplianceResult, day CivilDate, generation uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[res.DriverID] != generation {
		c.rejected++
		return nil
	}
	if c.entries[res.DriverID] == nil {
		c.entries[res.DriverID] = map[CivilDate]ComplianceResult{}
	}
	c.entries[res.DriverID][day] = res
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[id]++
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// lookup reports the cached entry for (id, day), if any.
func (c *recordingCache) lookup(id uuid.UUID, day CivilDate) (ComplianceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[id][day]
	return res, ok
}

type harness struct {
	engine    *Engine
	loc       *time.Location
	positions *fakePositions
	facts     *fakeFacts
	directory *fakeDirectory
	driver    uuid.UUID
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		loc:       sarajevo(t),
		positions: newFakePositions(),
		facts:     newFakeFacts(),
		directory: &fakeDirectory{},
		driver:    uuid.New(),
	}
	h.directory.add(DriverRef{ID: h.driver, Name: "Ana Kovač"})

	opts := Options{
		Region:               testRegion(t),
		Location:             h.loc,
		Positions:            h.positions,
		Facts:                h.facts,
		Overrides:            h.directory,
		Drivers:              h.directory,
		Concurrency:          2,
		WarningThresholdDays: 7,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h.engine = e
	return h
}

// at returns hour:00 local time on the given date.
func (h *harness) at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, h.loc)
}

// interleavedFacts runs between once, right after the first ListFacts
// returns, to simulate a write landing while Compute is in flight.
type interleavedFacts struct {
	FactStore
	mu      sync.Mutex
	between func()
}

func (f *interleavedFacts) ListFacts(ctx context.Context, driverID uuid.UUID, from, to CivilDate) ([]DayFact, error) {
	facts, err := f.FactStore.ListFacts(ctx, driverID, from, to)
	f.mu.Lock()
	fn := f.between
	f.between = nil
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
	return facts, err
}
