package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/persistence"
)

var (
	userCounter    uint64
	meetingCounter uint64
	periodCounter  uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns a UTC instant, shorthand for meeting bounds in tests.
func At(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

// ----------------------------- Users -----------------------------

// UserOption customises a user fixture.
type UserOption func(*persistence.User)

// NewUser returns a deterministic member. The display name is also used to
// derive the email address.
func NewUser(name string, opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:          fmt.Sprintf("user-%03d", idx),
		Email:       fmt.Sprintf("user-%03d@example.com", idx),
		DisplayName: name,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithEmail overrides the generated email.
func WithEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// AsAdmin grants administrator rights.
func AsAdmin() UserOption {
	return func(u *persistence.User) { u.IsAdmin = true }
}

// ----------------------------- Meetings -----------------------------

// MeetingOption customises a meeting fixture.
type MeetingOption func(*persistence.Meeting)

// NewMeeting returns a regular meeting of the given length starting at start.
func NewMeeting(start time.Time, hours float64, opts ...MeetingOption) persistence.Meeting {
	idx := atomic.AddUint64(&meetingCounter, 1)
	meeting := persistence.Meeting{
		ID:        fmt.Sprintf("meeting-%03d", idx),
		Start:     start,
		End:       start.Add(interval.HoursToDuration(hours)),
		Type:      persistence.MeetingTypeRegular,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&meeting)
	}
	return meeting
}

// WithMeetingID overrides the generated ID.
func WithMeetingID(id string) MeetingOption {
	return func(m *persistence.Meeting) { m.ID = id }
}

// Outreach marks the meeting as an outreach event.
func Outreach() MeetingOption {
	return func(m *persistence.Meeting) { m.Type = persistence.MeetingTypeOutreach }
}

// Described sets the meeting description.
func Described(description string) MeetingOption {
	return func(m *persistence.Meeting) { m.Description = description }
}

// ----------------------------- Periods -----------------------------

// NewPeriod returns a reporting period covering the inclusive date range.
func NewPeriod(name string, start, end interval.Date) persistence.ReportingPeriod {
	idx := atomic.AddUint64(&periodCounter, 1)
	return persistence.ReportingPeriod{
		ID:        fmt.Sprintf("period-%03d", idx),
		Name:      name,
		StartDate: start,
		EndDate:   end,
		CreatedAt: referenceTime,
	}
}

// ----------------------------- Ledger -----------------------------

// NewRecord returns a record with stored hours and no explicit interval.
func NewRecord(user persistence.User, meeting persistence.Meeting, hours float64) persistence.AttendanceRecord {
	return persistence.AttendanceRecord{
		ID:            fmt.Sprintf("record-%s-%s", user.ID, meeting.ID),
		UserID:        user.ID,
		MeetingID:     meeting.ID,
		AttendedHours: &hours,
		IsPartial:     hours < meeting.Hours(),
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
}

// NewSpanRecord returns a record with an explicit attended interval.
func NewSpanRecord(user persistence.User, meeting persistence.Meeting, start, end time.Time) persistence.AttendanceRecord {
	record := NewRecord(user, meeting, end.Sub(start).Hours())
	record.AttendedStart = &start
	record.AttendedEnd = &end
	return record
}

// NewExcuse returns an approved excuse with no originating request.
func NewExcuse(user persistence.User, meeting persistence.Meeting, periodID string) persistence.Excuse {
	return persistence.Excuse{
		ID:                fmt.Sprintf("excuse-%s-%s", user.ID, meeting.ID),
		UserID:            user.ID,
		MeetingID:         meeting.ID,
		ReportingPeriodID: periodID,
		Reason:            "fixture",
		CreatedAt:         referenceTime,
	}
}

// ----------------------------- Seeding -----------------------------

// Seed is a set of rows written to a store in dependency order.
type Seed struct {
	Users    []persistence.User
	Meetings []persistence.Meeting
	Periods  []persistence.ReportingPeriod
	Records  []persistence.AttendanceRecord
	Excuses  []persistence.Excuse
	Requests []persistence.ExcuseRequest
}

// Apply writes the seed in one transaction and fails the test on error.
func (s Seed) Apply(tb testing.TB, store persistence.Store) {
	tb.Helper()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		for _, u := range s.Users {
			if err := tx.Users().CreateUser(ctx, u); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
		}
		for _, m := range s.Meetings {
			if err := tx.Meetings().CreateMeeting(ctx, m); err != nil {
				return fmt.Errorf("meeting %s: %w", m.ID, err)
			}
		}
		for _, p := range s.Periods {
			if err := tx.Periods().CreatePeriod(ctx, p); err != nil {
				return fmt.Errorf("period %s: %w", p.ID, err)
			}
		}
		for _, r := range s.Records {
			if err := tx.Attendance().CreateRecord(ctx, r); err != nil {
				return fmt.Errorf("record %s: %w", r.ID, err)
			}
		}
		for _, e := range s.Excuses {
			if err := tx.Excuses().CreateExcuse(ctx, e); err != nil {
				return fmt.Errorf("excuse %s: %w", e.ID, err)
			}
		}
		for _, r := range s.Requests {
			if err := tx.ExcuseRequests().CreateRequest(ctx, r); err != nil {
				return fmt.Errorf("request %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		tb.Fatalf("failed to seed store: %v", err)
	}
}
