package seeds

import (
	"testing"
	"time"
)

func TestLoadFleet(t *testing.T) {
	f, err := loadFleet("data/fleet.json")
	if err != nil {
		t.Fatalf("loadFleet: %v", err)
	}
	if len(f.Drivers) == 0 {
		t.Fatal("expected seed drivers")
	}
	for _, d := range f.Drivers {
		for _, trip := range d.Trips {
			if trip.DaysAgo > 180 {
				t.Errorf("%s: trip starting %d days ago falls outside the window", d.Email, trip.DaysAgo)
			}
		}
	}
}

func TestTripPositions(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	d := seedDriver{Trips: []seedTrip{
		{DaysAgo: 10, Days: 3, Lat: 48.2, Lon: 16.37},
		{DaysAgo: 1, Days: 5, Lat: 45.8, Lon: 15.98},
	}}

	got := tripPositions(d, now)
	// The second trip stops at yesterday noon; today's noon is still ahead.
	if len(got) != 4 {
		t.Fatalf("expected 4 positions, got %d", len(got))
	}
	if want := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC); !got[0].RecordedAt.Equal(want) {
		t.Errorf("first fix at %v, want %v", got[0].RecordedAt, want)
	}
	if *got[3].Latitude != 45.8 {
		t.Errorf("last fix should come from the second trip")
	}
}
