package seeds

import "time"

// SeedAll loads the demo fleet. Trips are relative to now so the data always
// lands inside the current 180-day window.
func SeedAll() error {
	fleet, err := loadFleet(fleetPath)
	if err != nil {
		return err
	}
	if err := seedDrivers(fleet); err != nil {
		return err
	}
	if err := seedPositions(fleet, time.Now()); err != nil {
		return err
	}
	return nil
}
