package schengen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// WindowDays is the length of the rolling window.
	WindowDays = 180
	// MaxStayDays is how many in-region days the window allows.
	MaxStayDays = 90
)

var (
	ErrDriverNotFound   = errors.New("driver not found")
	ErrInvalidOverride  = errors.New("remaining days must be between 0 and 90")
	ErrOverrideInFuture = errors.New("override date is in the future")
	ErrInvalidRange     = errors.New("aggregation range end is before its start")
)

// PositionSample is one raw fix as read from the position store. Either
// coordinate may be nil.
type PositionSample struct {
	Latitude   *float64
	Longitude  *float64
	RecordedAt time.Time
}

// DayFact is the materialized presence of one driver on one calendar day.
type DayFact struct {
	Date        CivilDate `json:"date"`
	InRegion    bool      `json:"inRegion"`
	SampleCount uint32    `json:"sampleCount"`
}

// ManualOverride is an administrator's statement that, as of AsOf, exactly
// RemainingDays of the 90 remain.
type ManualOverride struct {
	RemainingDays uint8     `json:"remainingDays"`
	AsOf          CivilDate `json:"asOf"`
}

// Result sources.
const (
	SourceMaterialized = "materialized"
	SourceLive         = "live"
	SourceNone         = "none"
)

// OverrideDetail is reported when a manual override drove the result.
type OverrideDetail struct {
	RemainingDays     uint8     `json:"remainingDays"`
	AsOf              CivilDate `json:"asOf"`
	DaysSinceOverride int       `json:"daysSinceOverride"`
}

// ComplianceResult answers "how many days used / left" for one driver.
type ComplianceResult struct {
	DriverID        uuid.UUID       `json:"driverId"`
	WindowDays      int             `json:"windowDays"`
	UsedDays        uint8           `json:"usedDays"`
	RemainingDays   uint8           `json:"remainingDays"`
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	OverrideApplied bool            `json:"overrideApplied"`
	Override        *OverrideDetail `json:"override,omitempty"`
	// Source says where the day counts came from; SourceNone means neither
	// facts nor positions existed and UsedDays=0 is not confirmed presence.
	Source        string `json:"source"`
	DataAvailable bool   `json:"dataAvailable"`
}

// AggregateResult reports one driver's aggregation run.
type AggregateResult struct {
	DriverID       uuid.UUID `json:"driverId"`
	DaysWritten    uint32    `json:"daysWritten"`
	Samples        int       `json:"samples"`
	SamplesSkipped uint32    `json:"samplesSkipped"`
}

// AggregateAllResult reports a fleet-wide aggregation run.
type AggregateAllResult struct {
	ID             uuid.UUID   `json:"id"`
	Drivers        int         `json:"drivers"`
	Days           uint32      `json:"days"`
	SamplesSkipped uint32      `json:"samplesSkipped"`
	Failed         int         `json:"failed"`
	FailedDrivers  []uuid.UUID `json:"failedDrivers,omitempty"`
	From           time.Time   `json:"from"`
	To             time.Time   `json:"to"`
	StartedAt      time.Time   `json:"startedAt"`
	CompletedAt    time.Time   `json:"completedAt"`
}

// DriverRef is what the fleet-wide paths need to know about a driver.
type DriverRef struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Status      string
	TruckNumber string
	Override    *ManualOverride
}

// PositionReader lists a driver's fixes with RecordedAt in [from, to].
type PositionReader interface {
	ListPositions(ctx context.Context, driverID uuid.UUID, from, to time.Time) ([]PositionSample, error)
}

// FactStore persists day facts. UpsertFact must atomically replace any
// existing row for (driverID, fact.Date).
type FactStore interface {
	UpsertFact(ctx context.Context, driverID uuid.UUID, fact DayFact) error
	ListFacts(ctx context.Context, driverID uuid.UUID, from, to CivilDate) ([]DayFact, error)
}

// BatchFactReader is optionally implemented by a FactStore that can read
// many drivers' facts in one round trip.
type BatchFactReader interface {
	ListFactsForDrivers(ctx context.Context, driverIDs []uuid.UUID, from, to CivilDate) (map[uuid.UUID][]DayFact, error)
}

// OverrideStore reads and writes the per-driver manual override. Both
// methods return ErrDriverNotFound for unknown drivers; a nil override
// means none is set (or, for PutOverride, clears it).
type OverrideStore interface {
	GetOverride(ctx context.Context, driverID uuid.UUID) (*ManualOverride, error)
	PutOverride(ctx context.Context, driverID uuid.UUID, o *ManualOverride) error
}

// DriverDirectory lists every driver together with its override.
type DriverDirectory interface {
	ListDrivers(ctx context.Context) ([]DriverRef, error)
}
