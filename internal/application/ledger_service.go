package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/observability"
	"github.com/example/attendance-engine/internal/persistence"
)

// fullDayTolerance bounds how close to 24h a stored interval must be to
// count as a corrupted equal-time entry.
const fullDayTolerance = 0.01

// LedgerService records attendance.
type LedgerService struct {
	serviceBase
}

// NewLedgerService wires dependencies for the ledger service.
func NewLedgerService(deps Dependencies) *LedgerService {
	return &LedgerService{serviceBase: newServiceBase(deps)}
}

func (s *LedgerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LedgerService", operation, attrs...)
}

// LogByIdentifier records full attendance at a meeting for the principal.
func (s *LedgerService) LogByIdentifier(ctx context.Context, params LogByIdentifierParams) (record AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("LedgerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "LogByIdentifier",
		"principal_id", params.Principal.UserID,
		"meeting_id", params.MeetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to log attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", record.ID).InfoContext(ctx, "attendance logged")
	}()

	var meeting Meeting
	err = s.write(ctx, "log attendance", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		meeting, err = getMeeting(ctx, tx, params.MeetingID)
		if err != nil {
			return err
		}
		hours := meeting.Hours()
		record = s.newRecord(params.Principal.UserID, meeting.ID, meeting.Interval(), hours, false, params.Note)
		return createRecord(ctx, tx, record)
	})
	if err != nil {
		record = AttendanceRecord{}
		return
	}
	observability.RecordAttendanceLogged("identifier", string(meeting.Type))
	return
}

// LogByTimeRange records attendance at the meeting overlapping the range most.
// A zero-length meeting inside the range is credited with the whole range.
func (s *LedgerService) LogByTimeRange(ctx context.Context, params LogByTimeRangeParams) (result LogResult, err error) {
	if s == nil {
		err = fmt.Errorf("LedgerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "LogByTimeRange",
		"principal_id", params.Principal.UserID,
		"date", params.Date.String(),
		"range", params.Range.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to log attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"record_id", result.Record.ID,
			"meeting_id", result.Meeting.ID,
			"hours", result.Hours,
			"partial", result.Partial,
		).InfoContext(ctx, "attendance logged")
	}()

	if !params.Range.End.After(params.Range.Start) {
		err = ErrInvalidRange
		return
	}

	err = s.write(ctx, "log attendance", func(ctx context.Context, tx persistence.Tx) error {
		meeting, err := s.match(ctx, tx, params.Date, params.Range, params.Type)
		if err != nil {
			return err
		}

		span := clampToMeeting(meeting, params.Range)
		result = classify(meeting, span)
		result.Record = s.newRecord(params.Principal.UserID, meeting.ID, span, result.Hours, result.Partial, params.Note)
		return createRecord(ctx, tx, result.Record)
	})
	if err != nil {
		result = LogResult{}
		return
	}
	observability.RecordAttendanceLogged("time_range", string(result.Meeting.Type))
	return
}

// EditByTimeRange replaces the interval of the principal's existing record
// on the meeting matching the range. Any meeting type matches.
func (s *LedgerService) EditByTimeRange(ctx context.Context, params EditByTimeRangeParams) (result LogResult, err error) {
	if s == nil {
		err = fmt.Errorf("LedgerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "EditByTimeRange",
		"principal_id", params.Principal.UserID,
		"date", params.Date.String(),
		"range", params.Range.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("record_id", result.Record.ID, "hours", result.Hours).InfoContext(ctx, "attendance edited")
	}()

	if !params.Range.End.After(params.Range.Start) {
		err = ErrInvalidRange
		return
	}

	err = s.write(ctx, "edit attendance", func(ctx context.Context, tx persistence.Tx) error {
		meeting, err := s.match(ctx, tx, params.Date, params.Range, "")
		if err != nil {
			return err
		}

		existing, err := tx.Attendance().GetRecord(ctx, params.Principal.UserID, meeting.ID)
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNoExistingRecord
		}
		if err != nil {
			return err
		}

		span := clampToMeeting(meeting, params.Range)
		result = classify(meeting, span)
		if result.Hours <= 0 || (!meeting.Interval().IsInstant() && result.Hours > meeting.Hours()) {
			return ErrInvalidRange
		}

		start, end, hours := span.Start, span.End, result.Hours
		existing.AttendedStart = &start
		existing.AttendedEnd = &end
		existing.AttendedHours = &hours
		existing.IsPartial = result.Partial
		existing.Notes = strings.TrimSpace(params.Note)
		existing.UpdatedAt = s.now()
		result.Record = existing
		return tx.Attendance().UpdateRecord(ctx, existing)
	})
	if err != nil {
		result = LogResult{}
	}
	return
}

// RepairEqualTimeEntries finds records whose interval spans a full day, the
// signature of an entry saved with equal start and end times. With apply set
// the interval collapses to its start and the hours to zero.
func (s *LedgerService) RepairEqualTimeEntries(ctx context.Context, principal Principal, apply bool) (candidates []RepairCandidate, err error) {
	if s == nil {
		err = fmt.Errorf("LedgerService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RepairEqualTimeEntries",
		"principal_id", principal.UserID,
		"apply", apply,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to repair attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("candidates", len(candidates)).InfoContext(ctx, "equal time entries scanned")
	}()

	if err = RequireAdmin(principal); err != nil {
		return
	}

	run := s.read
	if apply {
		run = s.write
	}
	err = run(ctx, "repair attendance", func(ctx context.Context, tx persistence.Tx) error {
		records, err := tx.Attendance().ListRecords(ctx, persistence.AttendanceFilter{WithInterval: true})
		if err != nil {
			return err
		}
		for _, record := range records {
			hours := record.AttendedEnd.Sub(*record.AttendedStart).Hours()
			if math.Abs(hours-24) >= fullDayTolerance {
				continue
			}
			candidate := RepairCandidate{Record: record, Hours: hours}
			if apply {
				start := *record.AttendedStart
				zero := 0.0
				record.AttendedEnd = &start
				record.AttendedHours = &zero
				record.IsPartial = false
				record.UpdatedAt = s.now()
				if err := tx.Attendance().UpdateRecord(ctx, record); err != nil {
					return err
				}
				candidate.Record = record
				candidate.Applied = true
			}
			candidates = append(candidates, candidate)
		}
		return nil
	})
	if err != nil {
		candidates = nil
	}
	return
}

// match resolves the meeting on date that best fits span. Candidates come
// ordered by start then ID, so ties keep the earliest.
func (s *LedgerService) match(ctx context.Context, tx persistence.Tx, date interval.Date, span interval.Interval, meetingType MeetingType) (Meeting, error) {
	candidates, err := findOverlapping(ctx, tx, date, span, meetingType, s.location)
	if err != nil {
		return Meeting{}, err
	}
	if len(candidates) == 0 {
		return Meeting{}, ErrNoMatchingMeeting
	}
	best, bestScore := candidates[0], overlapScore(candidates[0], span)
	for _, candidate := range candidates[1:] {
		if score := overlapScore(candidate, span); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, nil
}

func overlapScore(meeting Meeting, span interval.Interval) time.Duration {
	mi := meeting.Interval()
	if mi.IsInstant() {
		if span.Contains(mi.Start) {
			return span.Duration()
		}
		return 0
	}
	return mi.Overlap(span)
}

// clampToMeeting intersects span with the meeting. Zero-length meetings
// keep the logged span as bonus time.
func clampToMeeting(meeting Meeting, span interval.Interval) interval.Interval {
	mi := meeting.Interval()
	if mi.IsInstant() {
		return span
	}
	clamped, ok := mi.Clamp(span)
	if !ok {
		return interval.Interval{Start: span.Start, End: span.Start}
	}
	return clamped
}

func classify(meeting Meeting, span interval.Interval) LogResult {
	hours := span.Hours()
	length := meeting.Hours()
	instant := meeting.Interval().IsInstant()
	return LogResult{
		Meeting:  meeting,
		Hours:    hours,
		Partial:  !instant && hours < length,
		Extended: hours > length,
	}
}

func (s *LedgerService) newRecord(userID, meetingID string, span interval.Interval, hours float64, partial bool, note string) AttendanceRecord {
	start, end := span.Start, span.End
	now := s.now()
	return AttendanceRecord{
		ID:            s.idGenerator(),
		UserID:        userID,
		MeetingID:     meetingID,
		AttendedStart: &start,
		AttendedEnd:   &end,
		AttendedHours: &hours,
		IsPartial:     partial,
		Notes:         strings.TrimSpace(note),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// createRecord pre-checks the (user, meeting) pair and maps the unique
// constraint for concurrent writers.
func createRecord(ctx context.Context, tx persistence.Tx, record AttendanceRecord) error {
	_, err := tx.Attendance().GetRecord(ctx, record.UserID, record.MeetingID)
	if err == nil {
		return ErrAlreadyLogged
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}
	err = tx.Attendance().CreateRecord(ctx, record)
	switch {
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyLogged
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	return err
}
