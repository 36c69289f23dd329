package schengen

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// CivilDate is a calendar day with no time or zone attached. It is the key
// every presence fact is stored under.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DayKey returns the calendar day t falls on in loc.
func DayKey(t time.Time, loc *time.Location) CivilDate {
	y, m, d := t.In(loc).Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// DateOf reads the calendar fields of t as-is, without zone conversion.
// Use it for values scanned from DATE columns.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// DayStart returns the instant the day begins in loc.
func DayStart(d CivilDate, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// ParseCivilDate parses YYYY-MM-DD.
func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Anchor is midnight UTC of the day; it is what DATE columns are written with.
func (d CivilDate) Anchor() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays moves the date by n calendar days.
func (d CivilDate) AddDays(n int) CivilDate {
	return DateOf(d.Anchor().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d CivilDate) Compare(o CivilDate) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d CivilDate) Before(o CivilDate) bool { return d.Compare(o) < 0 }
func (d CivilDate) After(o CivilDate) bool  { return d.Compare(o) > 0 }
func (d CivilDate) IsZero() bool            { return d == CivilDate{} }

// Within reports from <= d <= to.
func (d CivilDate) Within(from, to CivilDate) bool {
	return !d.Before(from) && !d.After(to)
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CivilDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *CivilDate) UnmarshalText(b []byte) error {
	parsed, err := ParseCivilDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
