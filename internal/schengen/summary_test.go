package schengen

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestSummary_SortedWithWarnings(t *testing.T) {
	for _, batched := range []bool{false, true} {
		name := "per-driver"
		if batched {
			name = "batched"
		}
		t.Run(name, func(t *testing.T) {
			facts := newFakeFacts()
			bf := &batchFacts{fakeFacts: facts}
			h := newHarness(t, func(o *Options) {
				if batched {
					o.Facts = bf
				} else {
					o.Facts = facts
				}
			})
			h.facts = facts
			ctx := context.Background()
			now := h.at(2025, 9, 1, 12)
			today := DayKey(now, h.loc)

			// h.driver ("Ana Kovač"): 3 used days, 87 remaining.
			for i := 1; i <= 3; i++ {
				facts.put(h.driver, DayFact{Date: today.AddDays(-i), InRegion: true, SampleCount: 1})
			}
			// Override driver: 5 remaining minus 1 day since = 4, under the warning threshold.
			urgent := uuid.New()
			asOf := today.AddDays(-200)
			h.directory.add(DriverRef{ID: urgent, Name: "Zoran Babić", TruckNumber: "T-7",
				Override: &ManualOverride{RemainingDays: 5, AsOf: asOf}})
			facts.put(urgent, DayFact{Date: asOf.AddDays(1), InRegion: true, SampleCount: 1})
			// Two drivers without data tie at 90 and sort by name.
			h.directory.add(DriverRef{ID: uuid.New(), Name: "mirko Perić"})
			h.directory.add(DriverRef{ID: uuid.New(), Name: "Luka Horvat"})

			rows, err := h.engine.Summary(ctx, now)
			if err != nil {
				t.Fatalf("Summary: %v", err)
			}
			if len(rows) != 4 {
				t.Fatalf("rows = %d, want 4", len(rows))
			}

			wantOrder := []string{"Zoran Babić", "Ana Kovač", "Luka Horvat", "mirko Perić"}
			for i, name := range wantOrder {
				if rows[i].Name != name {
					t.Errorf("row %d = %s, want %s", i, rows[i].Name, name)
				}
			}
			if rows[0].RemainingDays != 4 || !rows[0].Warning || rows[0].Override == nil || rows[0].TruckNumber != "T-7" {
				t.Errorf("urgent row = %+v", rows[0])
			}
			if rows[1].RemainingDays != 87 || rows[1].Warning {
				t.Errorf("second row = %+v", rows[1])
			}
			if rows[2].DataAvailable {
				t.Errorf("driver without data should be flagged: %+v", rows[2])
			}
			if batched && bf.batchCalls != 1 {
				t.Errorf("batch reads = %d, want 1", bf.batchCalls)
			}
		})
	}
}
