package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/persistence"
	tf "github.com/example/attendance-engine/internal/testfixtures"
)

func TestLedgerService_LogByTimeRange_Partial(t *testing.T) {
	alice := tf.NewUser("Alice")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 14, 0), 2)
	factory := newFactory(t, tf.Seed{Users: []persistence.User{alice}, Meetings: []persistence.Meeting{meeting}})

	result, err := factory.Ledger().LogByTimeRange(context.Background(), application.LogByTimeRangeParams{
		Principal: as(alice),
		Date:      interval.NewDate(2024, time.January, 15),
		Range:     span(tf.At(2024, time.January, 15, 14, 30), tf.At(2024, time.January, 15, 15, 30)),
		Note:      "  left early ",
	})
	require.NoError(t, err)

	assert.Equal(t, meeting.ID, result.Meeting.ID)
	assert.InDelta(t, 1.0, result.Hours, 1e-9)
	assert.True(t, result.Partial)
	assert.False(t, result.Extended)
	require.True(t, result.Record.HasInterval())
	assert.True(t, result.Record.AttendedStart.Equal(tf.At(2024, time.January, 15, 14, 30)))
	assert.Equal(t, "left early", result.Record.Notes)

	roster, err := factory.Catalog().MeetingAttendance(context.Background(), meeting.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.InDelta(t, 1.0, roster[0].Hours, 1e-9)
}

func TestLedgerService_LogByTimeRange_PicksLargestOverlap(t *testing.T) {
	alice := tf.NewUser("Alice")
	early := tf.NewMeeting(tf.At(2024, time.January, 15, 13, 0), 2)
	late := tf.NewMeeting(tf.At(2024, time.January, 15, 15, 0), 2)
	factory := newFactory(t, tf.Seed{Users: []persistence.User{alice}, Meetings: []persistence.Meeting{early, late}})

	result, err := factory.Ledger().LogByTimeRange(context.Background(), application.LogByTimeRangeParams{
		Principal: as(alice),
		Date:      interval.NewDate(2024, time.January, 15),
		Range:     span(tf.At(2024, time.January, 15, 14, 0), tf.At(2024, time.January, 15, 16, 30)),
	})
	require.NoError(t, err)

	assert.Equal(t, late.ID, result.Meeting.ID)
	assert.InDelta(t, 1.5, result.Hours, 1e-9)
	assert.True(t, result.Partial)
}

func TestLedgerService_LogByTimeRange_BonusMeeting(t *testing.T) {
	alice := tf.NewUser("Alice")
	bonus := tf.NewMeeting(tf.At(2024, time.February, 1, 10, 0), 0, tf.Described("Build day"))
	factory := newFactory(t, tf.Seed{Users: []persistence.User{alice}, Meetings: []persistence.Meeting{bonus}})

	result, err := factory.Ledger().LogByTimeRange(context.Background(), application.LogByTimeRangeParams{
		Principal: as(alice),
		Date:      interval.NewDate(2024, time.February, 1),
		Range:     span(tf.At(2024, time.February, 1, 9, 0), tf.At(2024, time.February, 1, 12, 0)),
	})
	require.NoError(t, err)

	assert.Equal(t, bonus.ID, result.Meeting.ID)
	assert.InDelta(t, 3.0, result.Hours, 1e-9)
	assert.False(t, result.Partial)
	assert.True(t, result.Extended)
}

func TestLedgerService_LogByTimeRange_Errors(t *testing.T) {
	alice := tf.NewUser("Alice")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 14, 0), 2)
	outreach := tf.NewMeeting(tf.At(2024, time.January, 16, 10, 0), 4, tf.Outreach())
	factory := newFactory(t, tf.Seed{Users: []persistence.User{alice}, Meetings: []persistence.Meeting{meeting, outreach}})
	ledger := factory.Ledger()
	ctx := context.Background()
	jan15 := interval.NewDate(2024, time.January, 15)

	tests := []struct {
		name   string
		params application.LogByTimeRangeParams
		want   error
	}{
		{
			name: "reversed range",
			params: application.LogByTimeRangeParams{
				Principal: as(alice), Date: jan15,
				Range: span(tf.At(2024, time.January, 15, 15, 0), tf.At(2024, time.January, 15, 14, 0)),
			},
			want: application.ErrInvalidRange,
		},
		{
			name: "empty range",
			params: application.LogByTimeRangeParams{
				Principal: as(alice), Date: jan15,
				Range: span(tf.At(2024, time.January, 15, 15, 0), tf.At(2024, time.January, 15, 15, 0)),
			},
			want: application.ErrInvalidRange,
		},
		{
			name: "nothing overlaps",
			params: application.LogByTimeRangeParams{
				Principal: as(alice), Date: jan15,
				Range: span(tf.At(2024, time.January, 15, 18, 0), tf.At(2024, time.January, 15, 19, 0)),
			},
			want: application.ErrNoMatchingMeeting,
		},
		{
			name: "type filter excludes regular meeting",
			params: application.LogByTimeRangeParams{
				Principal: as(alice), Date: jan15, Type: persistence.MeetingTypeOutreach,
				Range: span(tf.At(2024, time.January, 15, 14, 0), tf.At(2024, time.January, 15, 16, 0)),
			},
			want: application.ErrNoMatchingMeeting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.LogByTimeRange(ctx, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLedgerService_AlreadyLogged(t *testing.T) {
	alice := tf.NewUser("Alice")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 14, 0), 2)
	factory := newFactory(t, tf.Seed{Users: []persistence.User{alice}, Meetings: []persistence.Meeting{meeting}})
	ledger := factory.Ledger()
	ctx := context.Background()

	record, err := ledger.LogByIdentifier(ctx, application.LogByIdentifierParams{Principal: as(alice), MeetingID: meeting.ID})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, *record.AttendedHours, 1e-9)
	assert.False(t, record.IsPartial)

	_, err = ledger.LogByIdentifier(ctx, application.LogByIdentifierParams{Principal: as(alice), MeetingID: meeting.ID})
	assert.ErrorIs(t, err, application.ErrAlreadyLogged)

	_, err = ledger.LogByTimeRange(ctx, application.LogByTimeRangeParams{
		Principal: as(alice),
		Date:      interval.NewDate(2024, time.January, 15),
		Range:     span(tf.At(2024, time.January, 15, 14, 0), tf.At(2024, time.January, 15, 15, 0)),
	})
	assert.ErrorIs(t, err, application.ErrAlreadyLogged)

	_, err = ledger.LogByIdentifier(ctx, application.LogByIdentifierParams{Principal: as(alice), MeetingID: "missing"})
	assert.ErrorIs(t, err, application.ErrMeetingNotFound)
}

func TestLedgerService_EditByTimeRange(t *testing.T) {
	alice := tf.NewUser("Alice")
	bob := tf.NewUser("Bob")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 14, 0), 2)
	factory := newFactory(t, tf.Seed{
		Users:    []persistence.User{alice, bob},
		Meetings: []persistence.Meeting{meeting},
		Records:  []persistence.AttendanceRecord{tf.NewRecord(alice, meeting, 2)},
	})
	ledger := factory.Ledger()
	ctx := context.Background()
	jan15 := interval.NewDate(2024, time.January, 15)

	result, err := ledger.EditByTimeRange(ctx, application.EditByTimeRangeParams{
		Principal: as(alice),
		Date:      jan15,
		Range:     span(tf.At(2024, time.January, 15, 14, 0), tf.At(2024, time.January, 15, 15, 15)),
		Note:      "arrived on time, left early",
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.25, result.Hours, 1e-9)
	assert.True(t, result.Partial)
	assert.True(t, result.Record.HasInterval())

	roster, err := factory.Catalog().MeetingAttendance(ctx, meeting.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.InDelta(t, 1.25, roster[0].Hours, 1e-9)

	_, err = ledger.EditByTimeRange(ctx, application.EditByTimeRangeParams{
		Principal: as(bob),
		Date:      jan15,
		Range:     span(tf.At(2024, time.January, 15, 14, 0), tf.At(2024, time.January, 15, 15, 0)),
	})
	assert.ErrorIs(t, err, application.ErrNoExistingRecord)
}

func TestLedgerService_RepairEqualTimeEntries(t *testing.T) {
	admin := tf.NewUser("Admin", tf.AsAdmin())
	alice := tf.NewUser("Alice")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 14, 0), 2)
	other := tf.NewMeeting(tf.At(2024, time.January, 17, 14, 0), 2)
	broken := tf.NewSpanRecord(alice, meeting, tf.At(2024, time.January, 15, 14, 0), tf.At(2024, time.January, 16, 14, 0))
	healthy := tf.NewSpanRecord(alice, other, tf.At(2024, time.January, 17, 14, 0), tf.At(2024, time.January, 17, 16, 0))
	factory := newFactory(t, tf.Seed{
		Users:    []persistence.User{admin, alice},
		Meetings: []persistence.Meeting{meeting, other},
		Records:  []persistence.AttendanceRecord{broken, healthy},
	})
	ledger := factory.Ledger()
	ctx := context.Background()

	_, err := ledger.RepairEqualTimeEntries(ctx, as(alice), true)
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	dryRun, err := ledger.RepairEqualTimeEntries(ctx, as(admin), false)
	require.NoError(t, err)
	require.Len(t, dryRun, 1)
	assert.Equal(t, broken.ID, dryRun[0].Record.ID)
	assert.InDelta(t, 24.0, dryRun[0].Hours, 1e-9)
	assert.False(t, dryRun[0].Applied)

	applied, err := ledger.RepairEqualTimeEntries(ctx, as(admin), true)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.True(t, applied[0].Applied)
	assert.Zero(t, *applied[0].Record.AttendedHours)

	again, err := ledger.RepairEqualTimeEntries(ctx, as(admin), false)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestLedgerService_LogByTimeRange_ConcurrentWritersOnSQLite(t *testing.T) {
	alice := tf.NewUser("Alice")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 14, 0), 2)
	store := tf.NewSQLiteStore(t)
	factory := tf.NewServiceFactory(
		tf.WithStore(store),
		tf.WithClock(tf.NewClock(tf.At(2024, time.January, 20, 12, 0))),
	)
	tf.Seed{Users: []persistence.User{alice}, Meetings: []persistence.Meeting{meeting}}.Apply(t, store)
	ledger := factory.Ledger()

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.LogByTimeRange(context.Background(), application.LogByTimeRangeParams{
				Principal: as(alice),
				Date:      interval.NewDate(2024, time.January, 15),
				Range:     span(tf.At(2024, time.January, 15, 14, 0), tf.At(2024, time.January, 15, 15, 0)),
			})
		}(i)
	}
	wg.Wait()

	logged := 0
	for _, err := range errs {
		if err == nil {
			logged++
			continue
		}
		assert.ErrorIs(t, err, application.ErrAlreadyLogged)
	}
	assert.Equal(t, 1, logged)

	records, _ := countRows(t, store, meeting.ID)
	assert.Equal(t, 1, records)
}
