package schengen

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DriverSummary is one row of the fleet overview.
type DriverSummary struct {
	ComplianceResult
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status,omitempty"`
	TruckNumber string `json:"truckNumber,omitempty"`
	Warning     bool   `json:"warning"`
}

// Summary computes every driver's standing as of now, most urgent first.
// Ties are broken by name. When the fact store supports it all facts are read
// in one query.
func (e *Engine) Summary(ctx context.Context, now time.Time) ([]DriverSummary, error) {
	if e.drivers == nil {
		return nil, fmt.Errorf("schengen: no driver directory configured")
	}
	ctx, span := e.tracer.Start(ctx, "schengen.Summary")
	defer span.End()

	drivers, err := e.drivers.ListDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}

	toDay := DayKey(now, e.loc)
	sources, err := e.batchSources(ctx, drivers, toDay)
	if err != nil {
		return nil, err
	}

	out := make([]DriverSummary, 0, len(drivers))
	for _, d := range drivers {
		res, err := e.evaluate(ctx, d.ID, d.Override, now, sources(d.ID))
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", d.ID, err)
		}
		out = append(out, DriverSummary{
			ComplianceResult: res,
			Name:             d.Name,
			Email:            d.Email,
			Status:           d.Status,
			TruckNumber:      d.TruckNumber,
			Warning:          int(res.RemainingDays) < e.warnDays,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RemainingDays != out[j].RemainingDays {
			return out[i].RemainingDays < out[j].RemainingDays
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// batchSources returns a per-driver factSource. With a BatchFactReader the
// widest range any driver needs is loaded once and sliced in memory.
func (e *Engine) batchSources(ctx context.Context, drivers []DriverRef, toDay CivilDate) (func(uuid.UUID) factSource, error) {
	batch, ok := e.facts.(BatchFactReader)
	if !ok || len(drivers) == 0 {
		return func(id uuid.UUID) factSource {
			return func(ctx context.Context, from, to CivilDate) ([]DayFact, error) {
				return e.facts.ListFacts(ctx, id, from, to)
			}
		}, nil
	}

	earliest := windowStart(toDay)
	ids := make([]uuid.UUID, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.ID)
		if d.Override != nil {
			if since := d.Override.AsOf.AddDays(1); since.Before(earliest) {
				earliest = since
			}
		}
	}

	all, err := batch.ListFactsForDrivers(ctx, ids, earliest, toDay)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	return func(id uuid.UUID) factSource {
		return func(_ context.Context, from, to CivilDate) ([]DayFact, error) {
			var out []DayFact
			for _, f := range all[id] {
				if f.Date.Within(from, to) {
					out = append(out, f)
				}
			}
			return out, nil
		}
	}, nil
}
