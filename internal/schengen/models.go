package schengen

import (
	"time"

	"github.com/google/uuid"
)

// DayPresence is the stored form of a DayFact. Date is written as the UTC
// midnight of the civil day into a DATE column.
type DayPresence struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	DriverID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_day_presence_driver_date,priority:1"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex:idx_day_presence_driver_date,priority:2"`
	InRegion    bool      `gorm:"not null"`
	SampleCount int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DayPresence) TableName() string {
	return "schengen.day_presences"
}

func (p DayPresence) Fact() DayFact {
	return DayFact{
		Date:        DateOf(p.Date),
		InRegion:    p.InRegion,
		SampleCount: uint32(p.SampleCount),
	}
}
