package fleet

import (
	"time"

	"github.com/google/uuid"
)

// Driver is a fleet driver. The two Schengen columns hold the administrator's
// manual override; both are NULL when no override is set.
type Driver struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	FirstName   string    `gorm:"not null" json:"first_name"`
	LastName    string    `gorm:"not null" json:"last_name"`
	Email       string    `gorm:"uniqueIndex" json:"email"`
	Status      string    `gorm:"not null;default:'ACTIVE'" json:"status"`
	TruckNumber string    `json:"truck_number,omitempty"`

	SchengenManualRemainingDays *int16     `json:"schengen_manual_remaining_days,omitempty"`
	SchengenManualAsOf          *time.Time `gorm:"type:date" json:"schengen_manual_as_of,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Driver) TableName() string {
	return "fleet.drivers"
}

// FullName joins first and last name.
func (d Driver) FullName() string {
	switch {
	case d.FirstName == "":
		return d.LastName
	case d.LastName == "":
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

// Position is a raw GPS fix. Latitude/Longitude are nullable because some
// trackers report fixes without coordinates.
type Position struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	DriverID   uuid.UUID `gorm:"type:uuid;not null;index:idx_positions_driver_recorded,priority:1" json:"driver_id"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Speed      *float64  `json:"speed,omitempty"`
	RecordedAt time.Time `gorm:"not null;index:idx_positions_driver_recorded,priority:2" json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Position) TableName() string {
	return "fleet.positions"
}
