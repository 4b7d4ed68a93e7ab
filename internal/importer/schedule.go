package importer

import (
	"fmt"
	"time"

	"github.com/example/attendance-engine/internal/interval"
)

// TimeOfDay is a wall clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses HH:MM.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("importer: parse time of day %q: %w", value, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

var (
	// DefaultWeekdayStart is the start time of imported weekday meetings.
	DefaultWeekdayStart = TimeOfDay{Hour: 15, Minute: 30}
	// DefaultWeekendStart is the start time of imported weekend meetings.
	DefaultWeekendStart = TimeOfDay{Hour: 10}
)

// Schedule places imported meetings on the clock. Sheets only carry dates,
// so every meeting starts at a fixed weekday or weekend time.
type Schedule struct {
	location *time.Location
	weekday  TimeOfDay
	weekend  TimeOfDay
}

// NewSchedule constructs a Schedule in loc. A nil loc means UTC.
func NewSchedule(loc *time.Location, weekday, weekend TimeOfDay) *Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return &Schedule{location: loc, weekday: weekday, weekend: weekend}
}

// DefaultSchedule uses 15:30 on weekdays and 10:00 on weekends.
func DefaultSchedule(loc *time.Location) *Schedule {
	return NewSchedule(loc, DefaultWeekdayStart, DefaultWeekendStart)
}

// Start returns the meeting start on date.
func (s *Schedule) Start(date interval.Date) time.Time {
	clock := s.weekday
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		clock = s.weekend
	}
	return date.At(clock.Hour, clock.Minute, s.location)
}

// Interval returns the meeting span for a sheet row of the given length.
func (s *Schedule) Interval(date interval.Date, lengthHours float64) interval.Interval {
	return interval.FromHours(s.Start(date), lengthHours)
}
