package schengen

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// NewOverride validates an administrator's override. asOf defaults to now's
// civil day and may not be later than it.
func NewOverride(remaining int, asOf *CivilDate, now time.Time, loc *time.Location) (ManualOverride, error) {
	if remaining < 0 || remaining > MaxStayDays {
		return ManualOverride{}, ErrInvalidOverride
	}
	today := DayKey(now, loc)
	day := today
	if asOf != nil && !asOf.IsZero() {
		day = *asOf
	}
	if day.After(today) {
		return ManualOverride{}, ErrOverrideInFuture
	}
	return ManualOverride{RemainingDays: uint8(remaining), AsOf: day}, nil
}

// SetOverride stores a validated override for driverID.
func (e *Engine) SetOverride(ctx context.Context, driverID uuid.UUID, remaining int, asOf *CivilDate, now time.Time) (ManualOverride, error) {
	o, err := NewOverride(remaining, asOf, now, e.loc)
	if err != nil {
		return o, err
	}
	if err := e.overrides.PutOverride(ctx, driverID, &o); err != nil {
		return o, err
	}
	e.invalidate(ctx, driverID)
	log.Printf("[schengen] override set for driver %s: %d days remaining as of %s", driverID, o.RemainingDays, o.AsOf)
	return o, nil
}

// ClearOverride removes driverID's override; window counting resumes.
func (e *Engine) ClearOverride(ctx context.Context, driverID uuid.UUID) error {
	if err := e.overrides.PutOverride(ctx, driverID, nil); err != nil {
		return err
	}
	e.invalidate(ctx, driverID)
	log.Printf("[schengen] override cleared for driver %s", driverID)
	return nil
}

func (e *Engine) invalidate(ctx context.Context, driverID uuid.UUID) {
	if err := e.cache.Invalidate(ctx, driverID); err != nil {
		log.Printf("[schengen] cache invalidate %s: %v", driverID, err)
	}
}
