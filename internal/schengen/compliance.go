package schengen

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// factSource reads a driver's facts for an inclusive civil-day range.
type factSource func(ctx context.Context, from, to CivilDate) ([]DayFact, error)

// Compute reports used and remaining days for driverID as of now. With no
// override set it counts in-region days over the trailing window; with an
// override it decrements the attested remainder by in-region days after its
// date. Materialized facts are preferred; when none exist for the range the
// answer is computed from raw positions without writing anything.
func (e *Engine) Compute(ctx context.Context, driverID uuid.UUID, now time.Time) (ComplianceResult, error) {
	ctx, span := e.tracer.Start(ctx, "schengen.Compute")
	defer span.End()
	span.SetAttributes(attribute.String("driver.id", driverID.String()))
	started := time.Now()

	today := DayKey(now, e.loc)
	// The generation is read before any store so a concurrent invalidation
	// makes the Put below a no-op.
	cached, generation, err := e.cache.Get(ctx, driverID, today)
	cacheable := err == nil
	switch {
	case err != nil:
		e.metrics.cacheLookup("error")
		log.Printf("[schengen] cache get %s: %v", driverID, err)
	case cached != nil:
		e.metrics.cacheLookup("hit")
		cached.To = now
		span.SetAttributes(attribute.Bool("schengen.cache_hit", true))
		return *cached, nil
	default:
		e.metrics.cacheLookup("miss")
	}

	override, err := e.overrides.GetOverride(ctx, driverID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ComplianceResult{}, err
	}

	res, err := e.evaluate(ctx, driverID, override, now, func(ctx context.Context, from, to CivilDate) ([]DayFact, error) {
		return e.facts.ListFacts(ctx, driverID, from, to)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ComplianceResult{}, err
	}

	// Live results move as positions arrive, so only materialized ones are
	// cached; aggregation and override writes invalidate them.
	if cacheable && res.Source == SourceMaterialized {
		if err := e.cache.Put(ctx, res, today, generation); err != nil {
			log.Printf("[schengen] cache put %s: %v", driverID, err)
		}
	}

	span.SetAttributes(
		attribute.Bool("schengen.override_applied", res.OverrideApplied),
		attribute.String("schengen.source", res.Source),
		attribute.Int("schengen.used_days", int(res.UsedDays)),
	)
	e.metrics.computed(modeOf(res), res.Source, time.Since(started).Seconds())
	return res, nil
}

func modeOf(res ComplianceResult) string {
	if res.OverrideApplied {
		return "override"
	}
	return "window"
}

// evaluate runs the window or override calculation against facts from src,
// falling back to a live reduction of positions when src returns nothing.
func (e *Engine) evaluate(ctx context.Context, driverID uuid.UUID, o *ManualOverride, now time.Time, src factSource) (ComplianceResult, error) {
	toDay := DayKey(now, e.loc)
	res := ComplianceResult{
		DriverID:   driverID,
		WindowDays: WindowDays,
		To:         now,
		Source:     SourceNone,
	}

	fromDay := windowStart(toDay)
	if o != nil {
		// The override's own day is already reflected in its remainder.
		fromDay = o.AsOf.AddDays(1)
	}

	var facts []DayFact
	if !fromDay.After(toDay) {
		var err error
		facts, err = src(ctx, fromDay, toDay)
		if err != nil {
			return res, fmt.Errorf("list facts: %w", err)
		}
		if len(facts) > 0 {
			res.Source = SourceMaterialized
		} else {
			facts, err = e.liveFacts(ctx, driverID, fromDay, toDay)
			if err != nil {
				return res, err
			}
			if len(facts) > 0 {
				res.Source = SourceLive
			}
		}
	}
	res.DataAvailable = len(facts) > 0 || o != nil

	if o == nil {
		used, remaining := WindowCompliance(facts, fromDay, toDay)
		res.UsedDays, res.RemainingDays = uint8(used), uint8(remaining)
		res.From = DayStart(fromDay, e.loc)
		return res, nil
	}

	used, remaining, since := OverrideCompliance(*o, facts, toDay)
	res.UsedDays, res.RemainingDays = uint8(used), uint8(remaining)
	res.From = DayStart(o.AsOf, e.loc)
	res.OverrideApplied = true
	res.Override = &OverrideDetail{
		RemainingDays:     o.RemainingDays,
		AsOf:              o.AsOf,
		DaysSinceOverride: since,
	}
	return res, nil
}

// liveFacts reduces raw positions for [from, to] the same way Aggregate
// does, without persisting the result.
func (e *Engine) liveFacts(ctx context.Context, driverID uuid.UUID, from, to CivilDate) ([]DayFact, error) {
	readFrom := DayStart(from, e.loc)
	readTo := DayStart(to.AddDays(1), e.loc).Add(-time.Nanosecond)
	samples, err := e.positions.ListPositions(ctx, driverID, readFrom, readTo)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	days, _ := reduceDays(samples, e.region, e.loc)
	return sortedFacts(days), nil
}
