package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/compliance"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/persistence"
)

// CatalogService manages meetings and reporting periods.
type CatalogService struct {
	serviceBase
}

// NewCatalogService wires dependencies for the catalog service.
func NewCatalogService(deps Dependencies) *CatalogService {
	return &CatalogService{serviceBase: newServiceBase(deps)}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreateMeeting validates input and persists a new meeting for administrators.
func (s *CatalogService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (meeting Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateMeeting",
		"principal_id", params.Principal.UserID,
		"meeting_type", string(params.Type),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", meeting.ID).InfoContext(ctx, "meeting created")
	}()

	if err = RequireAdmin(params.Principal); err != nil {
		return
	}

	vErr := validateMeetingInput(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = interval.New(params.Start, params.End); err != nil {
		return
	}

	meeting = Meeting{
		ID:          s.idGenerator(),
		Start:       params.Start,
		End:         params.End,
		Type:        params.Type,
		Description: strings.TrimSpace(params.Description),
		CreatorID:   params.Principal.UserID,
		CreatedAt:   s.now(),
	}

	err = s.write(ctx, "create meeting", func(ctx context.Context, tx persistence.Tx) error {
		return tx.Meetings().CreateMeeting(ctx, meeting)
	})
	if err != nil {
		meeting = Meeting{}
	}
	return
}

func validateMeetingInput(params CreateMeetingParams) *ValidationError {
	vErr := &ValidationError{}
	if !params.Type.Valid() {
		vErr.add("type", "type must be regular or outreach")
	}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if params.End.IsZero() {
		vErr.add("end", "end is required")
	}
	return vErr
}

// GetMeeting returns a meeting by ID.
func (s *CatalogService) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	var meeting Meeting
	err := s.read(ctx, "get meeting", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		meeting, err = getMeeting(ctx, tx, id)
		return err
	})
	return meeting, err
}

// MeetingsInPeriod returns the meetings whose start falls inside the period.
func (s *CatalogService) MeetingsInPeriod(ctx context.Context, periodID string) ([]Meeting, error) {
	var meetings []Meeting
	err := s.read(ctx, "meetings in period", func(ctx context.Context, tx persistence.Tx) error {
		period, err := getPeriod(ctx, tx, periodID)
		if err != nil {
			return err
		}
		meetings, err = meetingsInPeriod(ctx, tx, period, s.location)
		return err
	})
	return meetings, err
}

// Partition splits meetings into regular and outreach sets, keeping order.
func Partition(meetings []Meeting) (regular, outreach []Meeting) {
	for _, m := range meetings {
		switch m.Type {
		case persistence.MeetingTypeRegular:
			regular = append(regular, m)
		case persistence.MeetingTypeOutreach:
			outreach = append(outreach, m)
		}
	}
	return regular, outreach
}

// FindOverlapping returns the meetings on date that overlap span, plus the
// zero-length meetings that lie inside it. An empty meetingType matches all.
func (s *CatalogService) FindOverlapping(ctx context.Context, date interval.Date, span interval.Interval, meetingType MeetingType) ([]Meeting, error) {
	var meetings []Meeting
	err := s.read(ctx, "find overlapping", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		meetings, err = findOverlapping(ctx, tx, date, span, meetingType, s.location)
		return err
	})
	return meetings, err
}

func findOverlapping(ctx context.Context, tx persistence.Tx, date interval.Date, span interval.Interval, meetingType MeetingType, loc *time.Location) ([]Meeting, error) {
	day := date.Span(loc)
	sameDay, err := tx.Meetings().ListMeetings(ctx, persistence.MeetingFilter{
		StartsFrom:   &day.Start,
		StartsBefore: &day.End,
		Type:         meetingType,
	})
	if err != nil {
		return nil, err
	}

	var matches []Meeting
	for _, m := range sameDay {
		mi := m.Interval()
		if mi.IsInstant() {
			if span.Contains(mi.Start) {
				matches = append(matches, m)
			}
			continue
		}
		if mi.Overlaps(span) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// DeleteMeeting removes a meeting and everything referencing it.
func (s *CatalogService) DeleteMeeting(ctx context.Context, principal Principal, meetingID string) (err error) {
	if s == nil {
		return fmt.Errorf("CatalogService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteMeeting",
		"principal_id", principal.UserID,
		"meeting_id", meetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting deleted")
	}()

	if err = RequireAdmin(principal); err != nil {
		return
	}

	err = s.write(ctx, "delete meeting", func(ctx context.Context, tx persistence.Tx) error {
		err := tx.Meetings().DeleteMeeting(ctx, meetingID)
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrMeetingNotFound
		}
		return err
	})
	return
}

// UpcomingMeetings lists meetings starting within the next days days.
func (s *CatalogService) UpcomingMeetings(ctx context.Context, days int) ([]Meeting, error) {
	if days <= 0 {
		vErr := &ValidationError{}
		vErr.add("days", "days must be positive")
		return nil, vErr
	}
	from := s.now()
	until := from.AddDate(0, 0, days)

	var meetings []Meeting
	err := s.read(ctx, "upcoming meetings", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		meetings, err = tx.Meetings().ListMeetings(ctx, persistence.MeetingFilter{StartsFrom: &from, StartsBefore: &until})
		return err
	})
	return meetings, err
}

// MeetingAttendance returns the roster of a meeting ordered by display name.
func (s *CatalogService) MeetingAttendance(ctx context.Context, meetingID string) ([]AttendanceEntry, error) {
	var entries []AttendanceEntry
	err := s.read(ctx, "meeting attendance", func(ctx context.Context, tx persistence.Tx) error {
		meeting, err := getMeeting(ctx, tx, meetingID)
		if err != nil {
			return err
		}
		records, err := tx.Attendance().ListRecords(ctx, persistence.AttendanceFilter{MeetingIDs: []string{meetingID}})
		if err != nil {
			return err
		}
		for _, record := range records {
			user, err := tx.Users().GetUser(ctx, record.UserID)
			if err != nil {
				return err
			}
			entries = append(entries, AttendanceEntry{
				Record: record,
				User:   user,
				Span:   attendedSpan(record, meeting),
				Hours:  compliance.HoursFor(record, meeting),
			})
		}
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].User.DisplayName < entries[j].User.DisplayName
	})
	return entries, err
}

// attendedSpan is the explicit interval when stored, the stored hours from
// the meeting start for legacy records, else the meeting itself.
func attendedSpan(record AttendanceRecord, meeting Meeting) interval.Interval {
	switch {
	case record.HasInterval():
		return interval.Interval{Start: *record.AttendedStart, End: *record.AttendedEnd}
	case record.AttendedHours != nil:
		return interval.FromHours(meeting.Start, *record.AttendedHours)
	default:
		return meeting.Interval()
	}
}

// CreatePeriod persists a reporting period for administrators.
func (s *CatalogService) CreatePeriod(ctx context.Context, params CreatePeriodParams) (period ReportingPeriod, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreatePeriod",
		"principal_id", params.Principal.UserID,
		"start_date", params.StartDate.String(),
		"end_date", params.EndDate.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create period", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("period_id", period.ID).InfoContext(ctx, "period created")
	}()

	if err = RequireAdmin(params.Principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	if params.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if params.EndDate.IsZero() {
		vErr.add("end_date", "end date is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if params.EndDate.Before(params.StartDate) {
		err = ErrInvalidInterval
		return
	}

	period = ReportingPeriod{
		ID:        s.idGenerator(),
		Name:      name,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		CreatorID: params.Principal.UserID,
		CreatedAt: s.now(),
	}
	err = s.write(ctx, "create period", func(ctx context.Context, tx persistence.Tx) error {
		return tx.Periods().CreatePeriod(ctx, period)
	})
	if err != nil {
		period = ReportingPeriod{}
	}
	return
}

// GetPeriod returns a period by ID.
func (s *CatalogService) GetPeriod(ctx context.Context, id string) (ReportingPeriod, error) {
	var period ReportingPeriod
	err := s.read(ctx, "get period", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		period, err = getPeriod(ctx, tx, id)
		return err
	})
	return period, err
}

// ListPeriods returns every period, newest first.
func (s *CatalogService) ListPeriods(ctx context.Context) ([]ReportingPeriod, error) {
	var periods []ReportingPeriod
	err := s.read(ctx, "list periods", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		periods, err = tx.Periods().ListPeriods(ctx)
		return err
	})
	return periods, err
}

// ActivePeriod returns the newest period whose dates contain today.
func (s *CatalogService) ActivePeriod(ctx context.Context) (ReportingPeriod, error) {
	periods, err := s.ListPeriods(ctx)
	if err != nil {
		return ReportingPeriod{}, err
	}
	now := s.now()
	for _, period := range periods {
		if inPeriod(period, now, s.location) {
			return period, nil
		}
	}
	return ReportingPeriod{}, ErrNotFound
}
