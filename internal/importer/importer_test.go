package importer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/attendance-engine/internal/interval"
)

func TestParse_MarkerAndPartialHours(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("Date,Length,Alice,Bob,Carol\n\"Team Mtg 1/15/2024\",2,,*,1.5\n"))
	require.NoError(t, err)

	plan, err := Parse(table, KindAttendance, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Users, 3)
	assert.Equal(t, "Alice", plan.Users[0].Name)
	assert.Empty(t, plan.Diagnostics)

	require.Len(t, plan.Rows, 1)
	row := plan.Rows[0]
	assert.Equal(t, interval.NewDate(2024, time.January, 15), row.Date)
	assert.Equal(t, "Team Mtg", row.Description)
	assert.InDelta(t, 2.0, row.Length, 1e-9)

	require.Len(t, row.Cells, 2)
	assert.Equal(t, Cell{Column: 3, User: "Bob", Excused: true}, row.Cells[0])
	assert.Equal(t, "Carol", row.Cells[1].User)
	assert.InDelta(t, 1.5, row.Cells[1].Hours, 1e-9)
	assert.True(t, row.Partial(row.Cells[1].Hours))
}

func TestUserColumns_StripsSummaryColumns(t *testing.T) {
	header := Tokenize([][]string{{"", "", "Alice", "Bob", "Total", "Pct", "Team", "Travel", "Avg"}})[0]

	columns := UserColumns(header, KindAttendance.TrailingIgnored())

	assert.Equal(t, []Column{{Index: 2, Name: "Alice"}, {Index: 3, Name: "Bob"}}, columns)
}

func TestClassifyRow(t *testing.T) {
	rows := Tokenize([][]string{
		{"", "", "Alice"},
		{"% attendance", "", "80"},
		{"REQUIREMENT", "", ""},
		{"Fall kickoff", "2", "2"},
		{"9/4/2024 Build", "2", "2"},
		{"Notes", "", "1"},
		{"total", "", "4"},
		{"", "", ""},
	})

	var got []RowClass
	started := false
	for _, row := range rows {
		class := ClassifyRow(row, KindAttendance, started)
		started = started || class == RowData
		got = append(got, class)
	}

	assert.Equal(t, []RowClass{RowHeader, RowSkip, RowSkip, RowSkip, RowData, RowData, RowSkip, RowSkip}, got)

	assert.Equal(t, RowSkip, ClassifyRow(RawRow{Index: 1, Label: "Fall kickoff"}, KindOutreach, false))
	assert.Equal(t, RowData, ClassifyRow(rows[3], KindOutreach, false))
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		label string
		date  interval.Date
		desc  string
		ok    bool
	}{
		{"Team Mtg 1/15/2024", interval.NewDate(2024, 1, 15), "Team Mtg", true},
		{"2024-02-01 - Build day", interval.NewDate(2024, 2, 1), "Build day", true},
		{"03-09-2024: Food drive", interval.NewDate(2024, 3, 9), "Food drive", true},
		{"Scrimmage 4/6/24", interval.NewDate(2024, 4, 6), "Scrimmage", true},
		{"Fair 2-30-2024", interval.Date{}, "Fair 2-30-2024", false},
		{"Park cleanup", interval.Date{}, "Park cleanup", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			date, desc, ok := ExtractDate(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.date, date)
			assert.Equal(t, tt.desc, desc)
		})
	}
}

func TestInferDates(t *testing.T) {
	jan := func(day int) interval.Date { return interval.NewDate(2024, time.January, day) }

	dates := []interval.Date{{}, jan(10), {}, jan(15), {}}
	inferred := InferDates(dates)

	assert.Equal(t, []interval.Date{jan(9), jan(10), jan(12), jan(15), jan(16)}, dates)
	assert.Equal(t, []bool{true, false, true, false, true}, inferred)

	none := []interval.Date{{}, {}}
	assert.Equal(t, []bool{false, false}, InferDates(none))
	assert.True(t, none[0].IsZero())
}

func TestParse_OutreachSheet(t *testing.T) {
	table := [][]string{
		{"Event", "Hours", "Alice", "Bob", "Total", "Team", "Travel"},
		{"REQUIREMENT", "", "12", "12", "", "", ""},
		{"Food bank 1/6/2024", "4", "4", "*", "", "", ""},
		{"Library reading", "", "2.5", "", "", "", ""},
		{"Parade 1/20/2024", "3", "abc", "5", "", "", ""},
	}

	plan, err := Parse(table, KindOutreach, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Users, 2)
	require.Len(t, plan.Rows, 3)

	bonus := plan.Rows[1]
	assert.True(t, bonus.Bonus())
	assert.True(t, bonus.Inferred)
	assert.Equal(t, interval.NewDate(2024, time.January, 13), bonus.Date)
	assert.Equal(t, "Library reading", bonus.Description)
	require.Len(t, bonus.Cells, 1)
	assert.False(t, bonus.Partial(bonus.Cells[0].Hours))

	var kinds []error
	for _, d := range plan.Diagnostics {
		kinds = append(kinds, d.Err)
	}
	assert.Equal(t, []error{ErrOutreachNotExcusable, ErrInvalidHours, ErrHoursExceedLength}, kinds)
}

func TestParse_AttendanceRowDiagnostics(t *testing.T) {
	table := [][]string{
		{"", "", "Alice"},
		{"1/8/2024", "", "2"},
		{"1/9/2024", "two", "2"},
		{"Social night", "2", "2"},
		{"1/10/2024", "2", "1"},
	}

	plan, err := Parse(table, KindAttendance, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Rows, 1)
	require.Len(t, plan.Diagnostics, 3)
	assert.True(t, errors.Is(&plan.Diagnostics[0], ErrMissingLength))
	assert.True(t, errors.Is(&plan.Diagnostics[1], ErrInvalidLength))
	assert.True(t, errors.Is(&plan.Diagnostics[2], ErrNoDate))
	assert.Equal(t, 4, plan.Diagnostics[2].Line)
}

func TestParse_EmptyTable(t *testing.T) {
	_, err := Parse(nil, KindAttendance, Options{})
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestSchedule_Start(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	schedule := DefaultSchedule(loc)

	monday := interval.NewDate(2024, time.January, 15)
	saturday := interval.NewDate(2024, time.January, 20)

	assert.Equal(t, time.Date(2024, 1, 15, 15, 30, 0, 0, loc), schedule.Start(monday))
	assert.Equal(t, time.Date(2024, 1, 20, 10, 0, 0, 0, loc), schedule.Start(saturday))

	span := schedule.Interval(monday, 2)
	assert.InDelta(t, 2.0, span.Hours(), 1e-9)
	assert.True(t, schedule.Interval(saturday, 0).IsInstant())
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:45")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 45}, got)

	_, err = ParseTimeOfDay("quarter past")
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	a := [][]string{{"", "", "Alice"}, {"1/8/2024", "2", "2"}}
	b := [][]string{{"", "", "Alice"}, {"1/8/2024", "2", " 2 "}}
	c := [][]string{{"", "", "Alice"}, {"1/8/2024", "2", "1"}}

	assert.Equal(t, Checksum(a), Checksum(b))
	assert.NotEqual(t, Checksum(a), Checksum(c))
	assert.Len(t, Checksum(a), 64)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Outreach ")
	require.NoError(t, err)
	assert.Equal(t, KindOutreach, kind)

	_, err = ParseKind("payroll")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
