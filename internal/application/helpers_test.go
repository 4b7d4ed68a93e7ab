package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/persistence"
	tf "github.com/example/attendance-engine/internal/testfixtures"
)

func newFactory(t *testing.T, seed tf.Seed) *tf.ServiceFactory {
	t.Helper()
	factory := tf.NewServiceFactory(
		tf.WithClock(tf.NewClock(tf.At(2024, time.January, 20, 12, 0))),
	)
	seed.Apply(t, factory.Store)
	return factory
}

func as(user persistence.User) application.Principal {
	return application.Principal{UserID: user.ID, IsAdmin: user.IsAdmin}
}

func span(start, end time.Time) interval.Interval {
	return interval.Interval{Start: start, End: end}
}

func countRows(t *testing.T, store persistence.Store, meetingID string) (records, excuses int) {
	t.Helper()
	err := store.ReadTx(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		r, err := tx.Attendance().ListRecords(ctx, persistence.AttendanceFilter{MeetingIDs: []string{meetingID}})
		if err != nil {
			return err
		}
		e, err := tx.Excuses().ListExcuses(ctx, persistence.ExcuseFilter{MeetingIDs: []string{meetingID}})
		if err != nil {
			return err
		}
		records, excuses = len(r), len(e)
		return nil
	})
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return records, excuses
}
