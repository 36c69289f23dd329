package schengen

import (
	"context"
	"log"
	"time"
)

// nextRunAt returns the next occurrence of hour:00 in loc strictly after now.
func nextRunAt(now time.Time, loc *time.Location, hour int) time.Time {
	local := now.In(loc)
	t := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !t.After(local) {
		t = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return t
}

// StartDaily runs AggregateAll every day at hour in the engine's timezone
// until ctx is cancelled. Errors are logged and the next run is still
// scheduled.
func (e *Engine) StartDaily(ctx context.Context, hour int) {
	go func() {
		for {
			next := nextRunAt(time.Now(), e.loc, hour)
			log.Printf("[schengen] next scheduled aggregation at %s", next.Format(time.RFC3339))
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			res, err := e.AggregateAll(ctx, time.Now())
			if err != nil {
				log.Printf("[schengen] scheduled aggregation failed: %v", err)
				continue
			}
			if res.Failed > 0 {
				log.Printf("[schengen] scheduled aggregation %s: %d of %d drivers failed", res.ID, res.Failed, res.Drivers)
			}
		}
	}()
}
