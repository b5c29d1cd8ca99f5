package core

import (
	"fmt"
	"time"
)

// GenerationHour is the time of day assigned to generated entries, chosen
// so that timezone conversions never move them into a neighbouring day.
const GenerationHour = 12

// Period is a closed date-time interval [From, To] used for reporting.
type Period struct {
	From time.Time
	To   time.Time
}

// Valid reports whether From is not after To.
func (p Period) Valid() bool {
	return !p.From.After(p.To)
}

// Contains reports whether t falls in [From, To], both ends inclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && !t.After(p.To)
}

// DayPeriod returns the interval from the start of from's day to the last
// instant of to's day, in loc.
func DayPeriod(from, to time.Time, loc *time.Location) Period {
	f := from.In(loc)
	t := to.In(loc)
	return Period{
		From: time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc),
		To:   time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc),
	}
}

// Month is a calendar month in a given location.
type Month struct {
	Year  int
	Month time.Month
	Loc   *time.Location
}

// MonthOf returns the calendar month containing t, as seen from loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return Month{Year: lt.Year(), Month: lt.Month(), Loc: loc}
}

// ParseMonth parses a "YYYY-MM" key.
func ParseMonth(key string, loc *time.Location) (Month, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01", key, loc)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", key, err)
	}
	return Month{Year: t.Year(), Month: t.Month(), Loc: loc}, nil
}

func (m Month) loc() *time.Location {
	if m.Loc == nil {
		return time.UTC
	}
	return m.Loc
}

// Start returns the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, m.loc())
}

// End returns the last instant of the month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, m.loc()).Day()
}

// Period returns [Start, End].
func (m Month) Period() Period {
	return Period{From: m.Start(), To: m.End()}
}

// Key returns the "YYYY-MM" period key.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// ClampDay limits day to the days available in the month.
func (m Month) ClampDay(day int) int {
	if day < 1 {
		return 1
	}
	if last := m.Days(); day > last {
		return last
	}
	return day
}

// DueDate returns the clamped day of the month at GenerationHour.
func (m Month) DueDate(day int) time.Time {
	return time.Date(m.Year, m.Month, m.ClampDay(day), GenerationHour, 0, 0, 0, m.loc())
}

func (m Month) String() string {
	return m.Key()
}
