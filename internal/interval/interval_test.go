package interval

import (
	"errors"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 15, hour, minute, 0, 0, time.UTC)
}

func TestNew_RejectsReversedBounds(t *testing.T) {
	t.Parallel()

	if _, err := New(at(16, 0), at(14, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	zero, err := New(at(14, 0), at(14, 0))
	if err != nil {
		t.Fatalf("zero-length interval should be legal: %v", err)
	}
	if !zero.IsInstant() || zero.Hours() != 0 {
		t.Fatalf("expected instant with zero hours, got %v", zero)
	}
}

func TestInterval_Overlap(t *testing.T) {
	t.Parallel()

	meeting := Interval{Start: at(14, 0), End: at(16, 0)}

	tests := []struct {
		name  string
		other Interval
		want  time.Duration
	}{
		{"inside", Interval{Start: at(14, 30), End: at(15, 30)}, time.Hour},
		{"covers", Interval{Start: at(13, 0), End: at(17, 0)}, 2 * time.Hour},
		{"tail", Interval{Start: at(15, 0), End: at(18, 0)}, time.Hour},
		{"disjoint", Interval{Start: at(16, 0), End: at(17, 0)}, 0},
		{"before", Interval{Start: at(10, 0), End: at(11, 0)}, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := meeting.Overlap(tc.other); got != tc.want {
				t.Fatalf("Overlap = %v, want %v", got, tc.want)
			}
			if got := tc.other.Overlap(meeting); got != tc.want {
				t.Fatalf("Overlap is not symmetric: %v vs %v", got, tc.want)
			}
		})
	}
}

func TestInterval_ContainsIncludesBounds(t *testing.T) {
	t.Parallel()

	rng := Interval{Start: at(14, 0), End: at(16, 0)}
	for _, ts := range []time.Time{at(14, 0), at(15, 0), at(16, 0)} {
		if !rng.Contains(ts) {
			t.Fatalf("expected %s inside %s", ts, rng)
		}
	}
	if rng.Contains(at(16, 1)) {
		t.Fatalf("16:01 should be outside %s", rng)
	}
}

func TestFromHours(t *testing.T) {
	t.Parallel()

	got := FromHours(at(14, 0), 1.5)
	if !got.End.Equal(at(15, 30)) {
		t.Fatalf("expected end 15:30, got %s", got.End)
	}
	if FromHours(at(14, 0), -1).Duration() != 0 {
		t.Fatalf("negative hours should clamp to zero")
	}
}

func TestDate_Arithmetic(t *testing.T) {
	t.Parallel()

	d := NewDate(2024, time.February, 28)
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Fatalf("leap-year rollover: got %s", got)
	}
	if got := d.DaysUntil(NewDate(2024, time.March, 10)); got != 11 {
		t.Fatalf("DaysUntil = %d, want 11", got)
	}
	if d.Weekday() != time.Wednesday {
		t.Fatalf("expected Wednesday, got %s", d.Weekday())
	}

	parsed, err := ParseDate("2024-01-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if parsed != NewDate(2024, time.January, 15) {
		t.Fatalf("unexpected parse result %v", parsed)
	}
}

func TestDateOf_UsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("PST", -8*60*60)
	instant := time.Date(2024, time.January, 16, 3, 0, 0, 0, time.UTC)
	if got := DateOf(instant, loc).String(); got != "2024-01-15" {
		t.Fatalf("expected local date 2024-01-15, got %s", got)
	}
}
