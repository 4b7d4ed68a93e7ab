package compliance

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/attendance-engine/internal/persistence"
)

func regular(id string, start time.Time, hours float64) persistence.Meeting {
	return persistence.Meeting{
		ID:    id,
		Start: start,
		End:   start.Add(time.Duration(hours * float64(time.Hour))),
		Type:  persistence.MeetingTypeRegular,
	}
}

func outreach(id string, start time.Time, hours float64) persistence.Meeting {
	m := regular(id, start, hours)
	m.Type = persistence.MeetingTypeOutreach
	return m
}

func TestCompute_JanuaryScenario(t *testing.T) {
	base := time.Date(2024, time.January, 1, 15, 30, 0, 0, time.UTC)
	var meetings []persistence.Meeting
	for i := 0; i < 10; i++ {
		meetings = append(meetings, regular(fmt.Sprintf("m-%02d", i), base.AddDate(0, 0, i*3), 2))
	}

	excuses := []persistence.Excuse{{ID: "e-1", UserID: "u", MeetingID: "m-00"}}
	var records []persistence.AttendanceRecord
	for i := 1; i <= 8; i++ {
		records = append(records, persistence.AttendanceRecord{ID: fmt.Sprintf("r-%d", i), UserID: "u", MeetingID: fmt.Sprintf("m-%02d", i)})
	}

	m := Compute(meetings, records, excuses, DefaultThresholds())

	assert.InDelta(t, 20.0, m.TotalRegularHours, 1e-9)
	assert.InDelta(t, 2.0, m.ExcusedRegularHours, 1e-9)
	assert.InDelta(t, 18.0, m.EffectiveRegularTotal, 1e-9)
	assert.InDelta(t, 16.0, m.AttendedRegularHours, 1e-9)
	assert.InDelta(t, 88.888, m.RegularPercentage, 0.01)
	assert.True(t, m.MeetsTeamRequirement)
	assert.True(t, m.MeetsTravelRequirement)
	assert.Equal(t, 1, m.ExcusedMeetings)
}

func TestCompute_NoMeetingsNeverDividesByZero(t *testing.T) {
	m := Compute(nil, nil, nil, DefaultThresholds())
	assert.Zero(t, m.RegularPercentage)
	assert.Zero(t, m.OverallPercentage)
	assert.False(t, m.MeetsTeamRequirement)

	only := regular("m-1", time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC), 2)
	m = Compute([]persistence.Meeting{only}, nil, []persistence.Excuse{{MeetingID: "m-1"}}, DefaultThresholds())
	assert.Zero(t, m.EffectiveRegularTotal)
	assert.Zero(t, m.RegularPercentage)
}

func TestCompute_OutreachIgnoresExcuses(t *testing.T) {
	start := time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)
	meetings := []persistence.Meeting{outreach("o-1", start, 6), outreach("o-2", start.AddDate(0, 0, 7), 8)}
	hours := 13.0
	records := []persistence.AttendanceRecord{{MeetingID: "o-1", AttendedHours: &hours}}
	excuses := []persistence.Excuse{{MeetingID: "o-2"}}

	m := Compute(meetings, records, excuses, DefaultThresholds())

	assert.InDelta(t, 14.0, m.EffectiveOutreachTotal, 1e-9)
	assert.Zero(t, m.ExcusedRegularHours)
	assert.True(t, m.MeetsOutreachTeamRequirement)
	assert.False(t, m.MeetsOutreachTravelRequirement)
	assert.InDelta(t, 13.0/14.0*100, m.OverallPercentage, 1e-9)
}

func TestHoursFor(t *testing.T) {
	meeting := regular("m-1", time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC), 2)
	start := meeting.Start.Add(30 * time.Minute)
	end := start.Add(time.Hour)
	stored := 1.75

	assert.InDelta(t, 1.0, HoursFor(persistence.AttendanceRecord{AttendedStart: &start, AttendedEnd: &end, AttendedHours: &stored}, meeting), 1e-9)
	assert.InDelta(t, 1.75, HoursFor(persistence.AttendanceRecord{AttendedHours: &stored}, meeting), 1e-9)
	assert.InDelta(t, 2.0, HoursFor(persistence.AttendanceRecord{}, meeting), 1e-9)

	bonus := regular("b-1", meeting.Start, 0)
	three := 3.0
	assert.InDelta(t, 3.0, HoursFor(persistence.AttendanceRecord{AttendedHours: &three}, bonus), 1e-9)
}

func TestRank(t *testing.T) {
	ranked := Rank([]Metrics{
		{UserID: "u-3", DisplayName: "Carol", AttendedHours: 4, OverallPercentage: 50},
		{UserID: "u-0", DisplayName: "Idle", AttendedHours: 0, OverallPercentage: 0},
		{UserID: "u-2", DisplayName: "Bob", AttendedHours: 8, OverallPercentage: 90},
		{UserID: "u-1", DisplayName: "Alice", AttendedHours: 4, OverallPercentage: 50},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"u-2", "u-1", "u-3"}, []string{ranked[0].UserID, ranked[1].UserID, ranked[2].UserID})
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{TeamRegularPercent: 120}.Validate())
	assert.Error(t, Thresholds{TeamOutreachHours: -1}.Validate())
}
