package schengen

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Aggregate materializes one fact per civil day touched by [from, to].
// Positions are read for whole days so that a range starting or ending
// mid-day never overwrites a day with a partial sample set. Upserts are
// issued one by one; an interrupted run leaves valid facts behind and can
// simply be repeated.
func (e *Engine) Aggregate(ctx context.Context, driverID uuid.UUID, from, to time.Time) (AggregateResult, error) {
	res := AggregateResult{DriverID: driverID}
	if to.Before(from) {
		return res, ErrInvalidRange
	}

	ctx, span := e.tracer.Start(ctx, "schengen.Aggregate")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", driverID.String()))

	started := time.Now()
	firstDay, lastDay := DayKey(from, e.loc), DayKey(to, e.loc)
	readFrom := DayStart(firstDay, e.loc)
	readTo := DayStart(lastDay.AddDays(1), e.loc).Add(-time.Nanosecond)

	samples, err := e.positions.ListPositions(ctx, driverID, readFrom, readTo)
	if err != nil {
		e.failAggregate(span, started, err)
		return res, fmt.Errorf("list positions: %w", err)
	}
	res.Samples = len(samples)

	days, skipped := reduceDays(samples, e.region, e.loc)
	res.SamplesSkipped = uint32(skipped)

	for _, fact := range sortedFacts(days) {
		if err := e.facts.UpsertFact(ctx, driverID, fact); err != nil {
			e.failAggregate(span, started, err)
			return res, fmt.Errorf("upsert %s: %w", fact.Date, err)
		}
		res.DaysWritten++
	}

	if res.DaysWritten > 0 {
		if err := e.cache.Invalidate(ctx, driverID); err != nil {
			log.Printf("[schengen] cache invalidate %s: %v", driverID, err)
		}
	}

	elapsed := time.Since(started)
	span.SetAttributes(
		attribute.Int("schengen.days_written", int(res.DaysWritten)),
		attribute.Int("schengen.samples", res.Samples),
		attribute.Int("schengen.samples_skipped", skipped),
	)
	e.metrics.aggregated("ok", res.DaysWritten, res.SamplesSkipped, elapsed.Seconds())
	log.Printf("[schengen] aggregated driver %s %s..%s: %d days, %d samples (%d skipped) in %s",
		driverID, firstDay, lastDay, res.DaysWritten, res.Samples, skipped, elapsed.Round(time.Millisecond))
	return res, nil
}

func (e *Engine) failAggregate(span trace.Span, started time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.metrics.aggregated("error", 0, 0, time.Since(started).Seconds())
}

// AggregateAll aggregates the trailing window for every driver with bounded
// concurrency. A failing driver is logged and reported; the rest still run.
func (e *Engine) AggregateAll(ctx context.Context, now time.Time) (AggregateAllResult, error) {
	res := AggregateAllResult{ID: uuid.New(), StartedAt: time.Now()}
	if e.drivers == nil {
		return res, fmt.Errorf("schengen: no driver directory configured")
	}

	fromDay, toDay := e.Window(now)
	from := DayStart(fromDay, e.loc)
	res.From, res.To = from, now

	drivers, err := e.drivers.ListDrivers(ctx)
	if err != nil {
		return res, fmt.Errorf("list drivers: %w", err)
	}
	res.Drivers = len(drivers)
	log.Printf("[schengen] run %s: aggregating %d drivers for %s..%s", res.ID, len(drivers), fromDay, toDay)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.concurrency)
	for _, d := range drivers {
		d := d // per-iteration copy; go 1.21 shares loop variables across iterations
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := e.Aggregate(ctx, d.ID, from, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[schengen] run %s: driver %s failed: %v", res.ID, d.ID, err)
				res.Failed++
				res.FailedDrivers = append(res.FailedDrivers, d.ID)
				return nil
			}
			res.Days += r.DaysWritten
			res.SamplesSkipped += r.SamplesSkipped
			return nil
		})
	}
	_ = g.Wait()

	res.CompletedAt = time.Now()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	log.Printf("[schengen] run %s: %d drivers, %d days, %d failed in %s",
		res.ID, res.Drivers, res.Days, res.Failed, res.CompletedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return res, nil
}
