package schengen

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Rewarm drops every driver's cached results and recomputes them as of now,
// so the first dashboard read after a bulk import does not pay for it.
// It returns how many drivers were recomputed.
func (e *Engine) Rewarm(ctx context.Context, now time.Time) (int, error) {
	if e.drivers == nil {
		return 0, fmt.Errorf("schengen: no driver directory configured")
	}
	drivers, err := e.drivers.ListDrivers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list drivers: %w", err)
	}

	var (
		done atomic.Int64
		g    errgroup.Group
	)
	g.SetLimit(e.concurrency)
	for _, d := range drivers {
		d := d // per-iteration copy; go 1.21 shares loop variables across iterations
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			e.invalidate(ctx, d.ID)
			if _, err := e.Compute(ctx, d.ID, now); err != nil {
				log.Printf("[schengen] rewarm driver %s: %v", d.ID, err)
				return nil
			}
			done.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return int(done.Load()), err
	}
	return int(done.Load()), nil
}
