package schengen

import (
	"errors"
	"time"

	"github.com/dispatchly/fleet-backend/internal/geofence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dispatchly/fleet-backend/internal/schengen"

// Options configures an Engine. Region, Location and the three stores are
// required.
type Options struct {
	Region    *geofence.Region
	Location  *time.Location
	Positions PositionReader
	Facts     FactStore
	Overrides OverrideStore
	Drivers   DriverDirectory

	Cache   ResultCache
	Metrics *Metrics

	// Concurrency bounds AggregateAll; values below 1 mean 1.
	Concurrency          int
	WarningThresholdDays int
}

// Engine evaluates the 90/180 rule for drivers. It holds no mutable state of
// its own and is safe for concurrent use.
type Engine struct {
	region    *geofence.Region
	loc       *time.Location
	positions PositionReader
	facts     FactStore
	overrides OverrideStore
	drivers   DriverDirectory
	cache     ResultCache
	metrics   *Metrics
	tracer    trace.Tracer

	concurrency int
	warnDays    int
}

func NewEngine(opts Options) (*Engine, error) {
	switch {
	case opts.Region == nil || opts.Region.Len() == 0:
		return nil, geofence.ErrEmptyRegion
	case opts.Location == nil:
		return nil, errors.New("schengen: reference location is required")
	case opts.Positions == nil || opts.Facts == nil || opts.Overrides == nil:
		return nil, errors.New("schengen: position, fact and override stores are required")
	}

	e := &Engine{
		region:      opts.Region,
		loc:         opts.Location,
		positions:   opts.Positions,
		facts:       opts.Facts,
		overrides:   opts.Overrides,
		drivers:     opts.Drivers,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		tracer:      otel.Tracer(tracerName),
		concurrency: max(1, opts.Concurrency),
		warnDays:    opts.WarningThresholdDays,
	}
	if e.cache == nil {
		e.cache = noopCache{}
	}
	return e, nil
}

// Location is the reference timezone days are bucketed in.
func (e *Engine) Location() *time.Location { return e.loc }

// Region is the loaded geofence.
func (e *Engine) Region() *geofence.Region { return e.region }

// Today is the civil day now falls on.
func (e *Engine) Today(now time.Time) CivilDate { return DayKey(now, e.loc) }

// Window returns the inclusive civil-day bounds of the rolling window ending
// on now's day. The window is WindowDays long, today included.
func (e *Engine) Window(now time.Time) (from, to CivilDate) {
	to = DayKey(now, e.loc)
	return windowStart(to), to
}

// windowStart is the first day of the window that ends on to.
func windowStart(to CivilDate) CivilDate {
	return to.AddDays(-(WindowDays - 1))
}
