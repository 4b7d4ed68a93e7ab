// Package interval implements the half-open time spans used to match logged
// attendance against meetings.
package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is returned when an interval ends before it starts.
var ErrInvalidInterval = errors.New("interval: end precedes start")

// Interval is the half-open span [Start, End). Start == End is a legal
// zero-length interval.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New validates the bounds and returns the interval.
func New(start, end time.Time) (Interval, error) {
	if end.Before(start) {
		return Interval{}, fmt.Errorf("%w: %s > %s", ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Hours returns the duration in fractional hours.
func (i Interval) Hours() float64 {
	return i.Duration().Hours()
}

// IsInstant reports whether the interval has zero length.
func (i Interval) IsInstant() bool {
	return i.Start.Equal(i.End)
}

// Overlap returns the length of the intersection, or zero when disjoint.
func (i Interval) Overlap(other Interval) time.Duration {
	clamped, ok := i.Clamp(other)
	if !ok {
		return 0
	}
	return clamped.Duration()
}

// Overlaps reports whether the two intervals share a non-empty span.
func (i Interval) Overlaps(other Interval) bool {
	return i.Overlap(other) > 0
}

// Contains reports whether t lies inside the interval. Both bounds are
// inclusive so that a zero-length meeting at the edge of a logged range
// still matches.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Clamp returns the intersection [max(starts), min(ends)). The boolean is
// false when the intervals do not intersect.
func (i Interval) Clamp(other Interval) (Interval, bool) {
	start := i.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := i.End
	if other.End.Before(end) {
		end = other.End
	}
	if end.Before(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// String renders the interval for logs.
func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// FromHours builds an interval of the given fractional length starting at
// start. Negative lengths are treated as zero.
func FromHours(start time.Time, hours float64) Interval {
	if hours < 0 {
		hours = 0
	}
	return Interval{Start: start, End: start.Add(HoursToDuration(hours))}
}

// HoursToDuration converts fractional hours into a duration rounded to the
// nearest second.
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour)).Round(time.Second)
}
