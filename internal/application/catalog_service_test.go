package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/persistence"
	tf "github.com/example/attendance-engine/internal/testfixtures"
)

func TestCatalogService_CreateMeeting(t *testing.T) {
	admin := tf.NewUser("Admin", tf.AsAdmin())
	alice := tf.NewUser("Alice")
	factory := newFactory(t, tf.Seed{Users: []persistence.User{admin, alice}})
	catalog := factory.Catalog()
	ctx := context.Background()
	start := tf.At(2024, time.January, 15, 15, 30)

	tests := []struct {
		name      string
		params    application.CreateMeetingParams
		wantErr   error
		wantField string
	}{
		{
			name:    "requires admin",
			params:  application.CreateMeetingParams{Principal: as(alice), Start: start, End: start.Add(2 * time.Hour), Type: persistence.MeetingTypeRegular},
			wantErr: application.ErrUnauthorized,
		},
		{
			name:      "unknown type",
			params:    application.CreateMeetingParams{Principal: as(admin), Start: start, End: start.Add(time.Hour), Type: "social"},
			wantField: "type",
		},
		{
			name:      "missing start",
			params:    application.CreateMeetingParams{Principal: as(admin), End: start, Type: persistence.MeetingTypeRegular},
			wantField: "start",
		},
		{
			name:    "end before start",
			params:  application.CreateMeetingParams{Principal: as(admin), Start: start, End: start.Add(-time.Hour), Type: persistence.MeetingTypeRegular},
			wantErr: application.ErrInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.CreateMeeting(ctx, tt.params)
			if tt.wantField != "" {
				var vErr *application.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Contains(t, vErr.FieldErrors, tt.wantField)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	meeting, err := catalog.CreateMeeting(ctx, application.CreateMeetingParams{
		Principal:   as(admin),
		Start:       start,
		End:         start,
		Type:        persistence.MeetingTypeRegular,
		Description: " Bonus build day ",
	})
	require.NoError(t, err, "zero-length meetings are allowed")
	assert.Equal(t, "Bonus build day", meeting.Description)
	assert.Zero(t, meeting.Hours())
	assert.Equal(t, admin.ID, meeting.CreatorID)

	stored, err := catalog.GetMeeting(ctx, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, meeting.ID, stored.ID)

	_, err = catalog.GetMeeting(ctx, "missing")
	assert.ErrorIs(t, err, application.ErrMeetingNotFound)
}

func TestCatalogService_DeleteMeetingCascades(t *testing.T) {
	admin := tf.NewUser("Admin", tf.AsAdmin())
	alice := tf.NewUser("Alice")
	bob := tf.NewUser("Bob")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 15, 30), 2)
	factory := newFactory(t, tf.Seed{
		Users:    []persistence.User{admin, alice, bob},
		Meetings: []persistence.Meeting{meeting},
		Records:  []persistence.AttendanceRecord{tf.NewRecord(alice, meeting, 2)},
		Excuses:  []persistence.Excuse{tf.NewExcuse(bob, meeting, "")},
	})
	catalog := factory.Catalog()
	ctx := context.Background()

	records, excuses := countRows(t, factory.Store, meeting.ID)
	require.Equal(t, 1, records)
	require.Equal(t, 1, excuses)

	assert.ErrorIs(t, catalog.DeleteMeeting(ctx, as(alice), meeting.ID), application.ErrUnauthorized)
	require.NoError(t, catalog.DeleteMeeting(ctx, as(admin), meeting.ID))

	records, excuses = countRows(t, factory.Store, meeting.ID)
	assert.Zero(t, records)
	assert.Zero(t, excuses)
	assert.ErrorIs(t, catalog.DeleteMeeting(ctx, as(admin), meeting.ID), application.ErrMeetingNotFound)
}

func TestCatalogService_MeetingsInPeriod(t *testing.T) {
	january := tf.NewPeriod("January", interval.NewDate(2024, time.January, 1), interval.NewDate(2024, time.January, 31))
	first := tf.NewMeeting(tf.At(2024, time.January, 1, 0, 0), 2)
	outreach := tf.NewMeeting(tf.At(2024, time.January, 13, 10, 0), 4, tf.Outreach())
	last := tf.NewMeeting(tf.At(2024, time.January, 31, 23, 0), 1)
	february := tf.NewMeeting(tf.At(2024, time.February, 1, 0, 0), 2)
	factory := newFactory(t, tf.Seed{
		Meetings: []persistence.Meeting{february, last, outreach, first},
		Periods:  []persistence.ReportingPeriod{january},
	})
	ctx := context.Background()

	meetings, err := factory.Catalog().MeetingsInPeriod(ctx, january.ID)
	require.NoError(t, err)
	require.Len(t, meetings, 3)
	assert.Equal(t, []string{first.ID, outreach.ID, last.ID}, []string{meetings[0].ID, meetings[1].ID, meetings[2].ID})

	regular, outreaches := application.Partition(meetings)
	assert.Len(t, regular, 2)
	require.Len(t, outreaches, 1)
	assert.Equal(t, outreach.ID, outreaches[0].ID)

	_, err = factory.Catalog().MeetingsInPeriod(ctx, "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestCatalogService_FindOverlapping(t *testing.T) {
	regular := tf.NewMeeting(tf.At(2024, time.February, 1, 14, 0), 2)
	bonus := tf.NewMeeting(tf.At(2024, time.February, 1, 10, 0), 0)
	outreach := tf.NewMeeting(tf.At(2024, time.February, 1, 9, 0), 3, tf.Outreach())
	factory := newFactory(t, tf.Seed{Meetings: []persistence.Meeting{regular, bonus, outreach}})
	catalog := factory.Catalog()
	ctx := context.Background()
	feb1 := interval.NewDate(2024, time.February, 1)

	all, err := catalog.FindOverlapping(ctx, feb1, span(tf.At(2024, time.February, 1, 9, 30), tf.At(2024, time.February, 1, 14, 30)), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyRegular, err := catalog.FindOverlapping(ctx, feb1, span(tf.At(2024, time.February, 1, 9, 30), tf.At(2024, time.February, 1, 14, 30)), persistence.MeetingTypeRegular)
	require.NoError(t, err)
	assert.Len(t, onlyRegular, 2)

	none, err := catalog.FindOverlapping(ctx, feb1, span(tf.At(2024, time.February, 1, 16, 0), tf.At(2024, time.February, 1, 17, 0)), "")
	require.NoError(t, err)
	assert.Empty(t, none, "touching the end bound is not an overlap")
}

func TestCatalogService_Periods(t *testing.T) {
	admin := tf.NewUser("Admin", tf.AsAdmin())
	factory := newFactory(t, tf.Seed{Users: []persistence.User{admin}})
	catalog := factory.Catalog()
	ctx := context.Background()

	_, err := catalog.CreatePeriod(ctx, application.CreatePeriodParams{
		Principal: as(admin),
		Name:      "Backwards",
		StartDate: interval.NewDate(2024, time.February, 1),
		EndDate:   interval.NewDate(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, application.ErrInvalidInterval)

	_, err = catalog.CreatePeriod(ctx, application.CreatePeriodParams{Principal: as(admin)})
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "name")

	_, err = catalog.ActivePeriod(ctx)
	assert.ErrorIs(t, err, application.ErrNotFound)

	january, err := catalog.CreatePeriod(ctx, application.CreatePeriodParams{
		Principal: as(admin),
		Name:      "January",
		StartDate: interval.NewDate(2024, time.January, 1),
		EndDate:   interval.NewDate(2024, time.January, 31),
	})
	require.NoError(t, err)
	_, err = catalog.CreatePeriod(ctx, application.CreatePeriodParams{
		Principal: as(admin),
		Name:      "Spring",
		StartDate: interval.NewDate(2024, time.February, 1),
		EndDate:   interval.NewDate(2024, time.May, 31),
	})
	require.NoError(t, err)

	active, err := catalog.ActivePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, january.ID, active.ID)

	periods, err := catalog.ListPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "Spring", periods[0].Name)
}

func TestCatalogService_UpcomingMeetings(t *testing.T) {
	past := tf.NewMeeting(tf.At(2024, time.January, 19, 15, 30), 2)
	soon := tf.NewMeeting(tf.At(2024, time.January, 22, 15, 30), 2)
	later := tf.NewMeeting(tf.At(2024, time.February, 10, 10, 0), 2)
	factory := newFactory(t, tf.Seed{Meetings: []persistence.Meeting{past, soon, later}})
	ctx := context.Background()

	upcoming, err := factory.Catalog().UpcomingMeetings(ctx, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soon.ID, upcoming[0].ID)

	_, err = factory.Catalog().UpcomingMeetings(ctx, 0)
	var vErr *application.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
