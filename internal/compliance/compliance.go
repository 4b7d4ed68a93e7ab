// Package compliance computes attendance metrics for one user over the
// meetings of a reporting period. It performs no I/O.
package compliance

import (
	"fmt"
	"sort"

	"github.com/example/attendance-engine/internal/persistence"
)

// Thresholds are the compliance cut-offs. Regular meetings are judged by
// percentage, outreach events by absolute hours.
type Thresholds struct {
	TeamRegularPercent   float64 `yaml:"team_regular_percent"`
	TravelRegularPercent float64 `yaml:"travel_regular_percent"`
	TeamOutreachHours    float64 `yaml:"team_outreach_hours"`
	TravelOutreachHours  float64 `yaml:"travel_outreach_hours"`
}

// DefaultThresholds returns 60 %/75 % for regular meetings and 12 h/18 h for outreach.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TeamRegularPercent:   60,
		TravelRegularPercent: 75,
		TeamOutreachHours:    12,
		TravelOutreachHours:  18,
	}
}

// Validate rejects negative cut-offs and percentages above 100.
func (t Thresholds) Validate() error {
	if t.TeamRegularPercent < 0 || t.TravelRegularPercent < 0 || t.TeamRegularPercent > 100 || t.TravelRegularPercent > 100 {
		return fmt.Errorf("compliance: regular thresholds must be within [0, 100], got %.2f/%.2f", t.TeamRegularPercent, t.TravelRegularPercent)
	}
	if t.TeamOutreachHours < 0 || t.TravelOutreachHours < 0 {
		return fmt.Errorf("compliance: outreach thresholds must not be negative, got %.2f/%.2f", t.TeamOutreachHours, t.TravelOutreachHours)
	}
	return nil
}

// Metrics is the per-user, per-period result.
type Metrics struct {
	UserID      string
	DisplayName string
	PeriodID    string

	RegularMeetings  int
	OutreachMeetings int
	ExcusedMeetings  int

	TotalRegularHours      float64
	TotalOutreachHours     float64
	AttendedRegularHours   float64
	AttendedOutreachHours  float64
	ExcusedRegularHours    float64
	EffectiveRegularTotal  float64
	EffectiveOutreachTotal float64
	RegularPercentage      float64

	MeetsTeamRequirement           bool
	MeetsTravelRequirement         bool
	MeetsOutreachTeamRequirement   bool
	MeetsOutreachTravelRequirement bool

	TotalHours        float64
	AttendedHours     float64
	EffectiveTotal    float64
	OverallPercentage float64
}

// HoursFor returns the attended hours a record contributes: the explicit
// interval when present, else the stored hour count, else the full meeting.
func HoursFor(record persistence.AttendanceRecord, meeting persistence.Meeting) float64 {
	var hours float64
	switch {
	case record.HasInterval():
		hours = record.AttendedEnd.Sub(*record.AttendedStart).Hours()
	case record.AttendedHours != nil:
		hours = *record.AttendedHours
	default:
		hours = meeting.Hours()
	}
	if hours < 0 {
		return 0
	}
	return hours
}

// Compute aggregates one user's records and excuses against the meetings of
// a period. Records and excuses for meetings outside the set are ignored, and
// excuses never reduce outreach totals.
func Compute(meetings []persistence.Meeting, records []persistence.AttendanceRecord, excuses []persistence.Excuse, thresholds Thresholds) Metrics {
	var m Metrics
	byID := make(map[string]persistence.Meeting, len(meetings))

	for _, meeting := range meetings {
		byID[meeting.ID] = meeting
		switch meeting.Type {
		case persistence.MeetingTypeRegular:
			m.RegularMeetings++
			m.TotalRegularHours += meeting.Hours()
		case persistence.MeetingTypeOutreach:
			m.OutreachMeetings++
			m.TotalOutreachHours += meeting.Hours()
		}
	}

	for _, record := range records {
		meeting, ok := byID[record.MeetingID]
		if !ok {
			continue
		}
		switch meeting.Type {
		case persistence.MeetingTypeRegular:
			m.AttendedRegularHours += HoursFor(record, meeting)
		case persistence.MeetingTypeOutreach:
			m.AttendedOutreachHours += HoursFor(record, meeting)
		}
	}

	excused := make(map[string]struct{}, len(excuses))
	for _, excuse := range excuses {
		meeting, ok := byID[excuse.MeetingID]
		if !ok || meeting.Type != persistence.MeetingTypeRegular {
			continue
		}
		if _, dup := excused[meeting.ID]; dup {
			continue
		}
		excused[meeting.ID] = struct{}{}
		m.ExcusedMeetings++
		m.ExcusedRegularHours += meeting.Hours()
	}

	m.EffectiveRegularTotal = m.TotalRegularHours - m.ExcusedRegularHours
	m.EffectiveOutreachTotal = m.TotalOutreachHours
	m.RegularPercentage = percentage(m.AttendedRegularHours, m.EffectiveRegularTotal)

	m.MeetsTeamRequirement = m.RegularPercentage >= thresholds.TeamRegularPercent
	m.MeetsTravelRequirement = m.RegularPercentage >= thresholds.TravelRegularPercent
	m.MeetsOutreachTeamRequirement = m.AttendedOutreachHours >= thresholds.TeamOutreachHours
	m.MeetsOutreachTravelRequirement = m.AttendedOutreachHours >= thresholds.TravelOutreachHours

	m.TotalHours = m.TotalRegularHours + m.TotalOutreachHours
	m.AttendedHours = m.AttendedRegularHours + m.AttendedOutreachHours
	m.EffectiveTotal = m.EffectiveRegularTotal + m.EffectiveOutreachTotal
	m.OverallPercentage = percentage(m.AttendedHours, m.EffectiveTotal)
	return m
}

func percentage(attended, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return attended / total * 100
}

// Rank keeps users with attended hours and orders them by overall
// percentage, highest first. Ties fall back to display name, then user ID.
func Rank(metrics []Metrics) []Metrics {
	ranked := make([]Metrics, 0, len(metrics))
	for _, m := range metrics {
		if m.AttendedHours > 0 {
			ranked = append(ranked, m)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.OverallPercentage != b.OverallPercentage {
			return a.OverallPercentage > b.OverallPercentage
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.UserID < b.UserID
	})
	return ranked
}
