package schengen

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRewarm_RecomputesStaleEntries(t *testing.T) {
	cache := newRecordingCache()
	h := newHarness(t, func(o *Options) { o.Cache = cache })
	other := uuid.New()
	h.directory.add(DriverRef{ID: other, Name: "Luka"})
	ctx := context.Background()
	now := h.at(2025, 3, 10, 9)
	today := DayKey(now, h.loc)

	h.facts.put(h.driver, DayFact{Date: today, InRegion: true, SampleCount: 1})
	h.facts.put(other, DayFact{Date: today, InRegion: false, SampleCount: 1})
	if _, err := h.engine.Compute(ctx, h.driver, now); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// Written behind the engine's back, e.g. by a bulk import.
	h.facts.put(h.driver, DayFact{Date: today.AddDays(-1), InRegion: true, SampleCount: 1})

	n, err := h.engine.Rewarm(ctx, now)
	if err != nil {
		t.Fatalf("Rewarm: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 drivers recomputed, got %d", n)
	}

	got, ok := cache.lookup(h.driver, today)
	if !ok || got.UsedDays != 2 {
		t.Errorf("expected fresh cached result with 2 used days, got %+v (cached=%v)", got, ok)
	}
	if _, ok := cache.lookup(other, today); !ok {
		t.Error("second driver should be cached")
	}
}

func TestRewarm_Cancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.engine.Rewarm(ctx, h.at(2025, 3, 10, 9)); err == nil {
		t.Error("expected context error")
	}
}
