package schengen

import (
	"sort"
	"time"

	"github.com/dispatchly/fleet-backend/internal/geofence"
)

// reduceDays folds raw samples into one fact per calendar day. A day is in
// region when any of its valid samples is inside. Samples with missing or
// out-of-range coordinates are skipped and do not create a day. Input order
// does not matter.
func reduceDays(samples []PositionSample, region *geofence.Region, loc *time.Location) (map[CivilDate]DayFact, int) {
	days := make(map[CivilDate]DayFact)
	skipped := 0
	for _, s := range samples {
		if s.Latitude == nil || s.Longitude == nil {
			skipped++
			continue
		}
		lat, lon := *s.Latitude, *s.Longitude
		if !geofence.ValidCoordinate(lat, lon) {
			skipped++
			continue
		}
		key := DayKey(s.RecordedAt, loc)
		f := days[key]
		f.Date = key
		f.SampleCount++
		if !f.InRegion && region.IsInside(lat, lon) {
			f.InRegion = true
		}
		days[key] = f
	}
	return days, skipped
}

// sortedFacts returns the map's facts in ascending date order.
func sortedFacts(days map[CivilDate]DayFact) []DayFact {
	out := make([]DayFact, 0, len(days))
	for _, f := range days {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// countInRegion counts distinct in-region dates within [from, to].
func countInRegion(facts []DayFact, from, to CivilDate) int {
	seen := make(map[CivilDate]struct{}, len(facts))
	for _, f := range facts {
		if f.InRegion && f.Date.Within(from, to) {
			seen[f.Date] = struct{}{}
		}
	}
	return len(seen)
}

// WindowCompliance applies the 90/180 rule to facts in [from, to]. Days
// without a fact count neither as used nor as out.
func WindowCompliance(facts []DayFact, from, to CivilDate) (used, remaining int) {
	used = countInRegion(facts, from, to)
	return used, max(0, MaxStayDays-used)
}

// OverrideCompliance decrements the attested remainder by in-region days
// strictly after the override date and up to to.
func OverrideCompliance(o ManualOverride, facts []DayFact, to CivilDate) (used, remaining, daysSince int) {
	since := o.AsOf.AddDays(1)
	if !since.After(to) {
		daysSince = countInRegion(facts, since, to)
	}
	remaining = max(0, int(o.RemainingDays)-daysSince)
	used = min(MaxStayDays, MaxStayDays-remaining)
	return used, remaining, daysSince
}
