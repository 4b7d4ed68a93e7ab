package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/attendance-engine/internal/compliance"
	"github.com/example/attendance-engine/internal/observability"
	"github.com/example/attendance-engine/internal/persistence"
)

// ReportService computes compliance metrics on demand. Nothing is cached.
type ReportService struct {
	serviceBase
	thresholds compliance.Thresholds
}

// NewReportService wires dependencies for the report service. Zero
// thresholds fall back to compliance.DefaultThresholds.
func NewReportService(deps Dependencies, thresholds compliance.Thresholds) *ReportService {
	if thresholds == (compliance.Thresholds{}) {
		thresholds = compliance.DefaultThresholds()
	}
	return &ReportService{serviceBase: newServiceBase(deps), thresholds: thresholds}
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}

// ComputeUserMetrics returns one user's metrics for a period.
func (s *ReportService) ComputeUserMetrics(ctx context.Context, userID, periodID string) (metrics Metrics, err error) {
	if s == nil {
		err = fmt.Errorf("ReportService is nil")
		return
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "ComputeUserMetrics", "user_id", userID, "period_id", periodID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute metrics", "error", err, "error_kind", ErrorKind(err))
			return
		}
		observability.ObserveReport("user", time.Since(started).Seconds())
		logger.With("regular_percentage", metrics.RegularPercentage).DebugContext(ctx, "metrics computed")
	}()

	err = s.read(ctx, "compute user metrics", func(ctx context.Context, tx persistence.Tx) error {
		user, err := getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		period, err := getPeriod(ctx, tx, periodID)
		if err != nil {
			return err
		}
		meetings, err := meetingsInPeriod(ctx, tx, period, s.location)
		if err != nil {
			return err
		}
		ids := meetingIDs(meetings)
		records, err := tx.Attendance().ListRecords(ctx, persistence.AttendanceFilter{UserID: user.ID, MeetingIDs: ids})
		if err != nil {
			return err
		}
		excuses, err := tx.Excuses().ListExcuses(ctx, persistence.ExcuseFilter{UserID: user.ID, MeetingIDs: ids})
		if err != nil {
			return err
		}
		metrics = s.compute(user, period, meetings, records, excuses)
		return nil
	})
	if err != nil {
		metrics = Metrics{}
	}
	return
}

// ComputePeriodReport computes metrics for every known user and keeps those
// with attended hours, best overall percentage first.
func (s *ReportService) ComputePeriodReport(ctx context.Context, periodID string) (report []Metrics, err error) {
	if s == nil {
		err = fmt.Errorf("ReportService is nil")
		return
	}

	started := time.Now()
	logger := s.loggerWith(ctx, "ComputePeriodReport", "period_id", periodID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		observability.ObserveReport("period", time.Since(started).Seconds())
		logger.With("users", len(report)).InfoContext(ctx, "report computed")
	}()

	err = s.read(ctx, "compute period report", func(ctx context.Context, tx persistence.Tx) error {
		period, err := getPeriod(ctx, tx, periodID)
		if err != nil {
			return err
		}
		users, err := tx.Users().ListUsers(ctx)
		if err != nil {
			return err
		}
		meetings, err := meetingsInPeriod(ctx, tx, period, s.location)
		if err != nil {
			return err
		}

		if len(meetings) == 0 {
			return nil
		}
		ids := meetingIDs(meetings)
		records, err := tx.Attendance().ListRecords(ctx, persistence.AttendanceFilter{MeetingIDs: ids})
		if err != nil {
			return err
		}
		excuses, err := tx.Excuses().ListExcuses(ctx, persistence.ExcuseFilter{MeetingIDs: ids})
		if err != nil {
			return err
		}

		recordsByUser := make(map[string][]AttendanceRecord)
		for _, r := range records {
			recordsByUser[r.UserID] = append(recordsByUser[r.UserID], r)
		}
		excusesByUser := make(map[string][]Excuse)
		for _, e := range excuses {
			excusesByUser[e.UserID] = append(excusesByUser[e.UserID], e)
		}
		all := make([]Metrics, 0, len(users))
		for _, user := range users {
			all = append(all, s.compute(user, period, meetings, recordsByUser[user.ID], excusesByUser[user.ID]))
		}
		report = compliance.Rank(all)
		return nil
	})
	if err != nil {
		report = nil
	}
	return
}

func (s *ReportService) compute(user User, period ReportingPeriod, meetings []Meeting, records []AttendanceRecord, excuses []Excuse) Metrics {
	m := compliance.Compute(meetings, records, excuses, s.thresholds)
	m.UserID = user.ID
	m.DisplayName = user.DisplayName
	m.PeriodID = period.ID
	return m
}

func meetingIDs(meetings []Meeting) []string {
	ids := make([]string, len(meetings))
	for i, m := range meetings {
		ids[i] = m.ID
	}
	return ids
}
