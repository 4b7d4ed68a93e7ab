package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/attendance-engine/internal/observability"
	"github.com/example/attendance-engine/internal/persistence"
)

// ExcuseService runs the excuse request workflow:
// pending -> approved | denied, both terminal.
type ExcuseService struct {
	serviceBase
}

// NewExcuseService wires dependencies for the excuse service.
func NewExcuseService(deps Dependencies) *ExcuseService {
	return &ExcuseService{serviceBase: newServiceBase(deps)}
}

func (s *ExcuseService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ExcuseService", operation, attrs...)
}

// Submit files a pending excuse request for the principal.
func (s *ExcuseService) Submit(ctx context.Context, params SubmitExcuseParams) (request ExcuseRequest, err error) {
	if s == nil {
		err = fmt.Errorf("ExcuseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Submit",
		"principal_id", params.Principal.UserID,
		"meeting_id", params.MeetingID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit excuse request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", request.ID).InfoContext(ctx, "excuse request submitted")
	}()

	userID := params.Principal.UserID
	err = s.write(ctx, "submit excuse request", func(ctx context.Context, tx persistence.Tx) error {
		meeting, err := s.requestedMeeting(ctx, tx, params)
		if err != nil {
			return err
		}

		_, err = tx.ExcuseRequests().FindPending(ctx, userID, meeting.ID)
		if err == nil {
			return ErrDuplicatePending
		}
		if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		if err := ensureNotExcused(ctx, tx, userID, meeting.ID); err != nil {
			return err
		}

		request = ExcuseRequest{
			ID:          s.idGenerator(),
			UserID:      userID,
			MeetingID:   meeting.ID,
			Reason:      strings.TrimSpace(params.Reason),
			Status:      persistence.ExcuseStatusPending,
			RequestedAt: s.now(),
		}
		err = tx.ExcuseRequests().CreateRequest(ctx, request)
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		request = ExcuseRequest{}
		return
	}
	observability.RecordExcuseTransition("submitted")
	return
}

// Approve accepts a pending request and creates the linked excuse.
func (s *ExcuseService) Approve(ctx context.Context, params ReviewExcuseParams) (excuse Excuse, err error) {
	if s == nil {
		err = fmt.Errorf("ExcuseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Approve",
		"principal_id", params.Principal.UserID,
		"request_id", params.RequestID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve excuse request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("excuse_id", excuse.ID).InfoContext(ctx, "excuse request approved")
	}()

	if err = RequireAdmin(params.Principal); err != nil {
		return
	}

	err = s.write(ctx, "approve excuse request", func(ctx context.Context, tx persistence.Tx) error {
		request, err := pendingRequest(ctx, tx, params.RequestID)
		if err != nil {
			return err
		}
		meeting, err := excusableMeeting(ctx, tx, request.MeetingID)
		if err != nil {
			return err
		}
		if err := ensureNotExcused(ctx, tx, request.UserID, meeting.ID); err != nil {
			return err
		}
		if err := s.review(ctx, tx, request, persistence.ExcuseStatusApproved, params); err != nil {
			return err
		}

		periodID, err := containingPeriod(ctx, tx, meeting.Start, s.location)
		if err != nil {
			return err
		}
		excuse = Excuse{
			ID:                s.idGenerator(),
			UserID:            request.UserID,
			MeetingID:         meeting.ID,
			ReportingPeriodID: periodID,
			Reason:            request.Reason,
			CreatorID:         params.Principal.UserID,
			ExcuseRequestID:   request.ID,
			CreatedAt:         s.now(),
		}
		return createExcuse(ctx, tx, excuse)
	})
	if err != nil {
		excuse = Excuse{}
		return
	}
	observability.RecordExcuseTransition("approved")
	return
}

// Deny rejects a pending request without creating an excuse.
func (s *ExcuseService) Deny(ctx context.Context, params ReviewExcuseParams) (request ExcuseRequest, err error) {
	if s == nil {
		err = fmt.Errorf("ExcuseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Deny",
		"principal_id", params.Principal.UserID,
		"request_id", params.RequestID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deny excuse request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "excuse request denied")
	}()

	if err = RequireAdmin(params.Principal); err != nil {
		return
	}

	err = s.write(ctx, "deny excuse request", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		request, err = pendingRequest(ctx, tx, params.RequestID)
		if err != nil {
			return err
		}
		if _, err := getMeeting(ctx, tx, request.MeetingID); err != nil {
			return err
		}
		if err := s.review(ctx, tx, request, persistence.ExcuseStatusDenied, params); err != nil {
			return err
		}
		request, err = tx.ExcuseRequests().GetRequest(ctx, request.ID)
		return err
	})
	if err != nil {
		request = ExcuseRequest{}
		return
	}
	observability.RecordExcuseTransition("denied")
	return
}

// ExcuseDirectly excuses a user without a request.
func (s *ExcuseService) ExcuseDirectly(ctx context.Context, params DirectExcuseParams) (excuse Excuse, err error) {
	if s == nil {
		err = fmt.Errorf("ExcuseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ExcuseDirectly",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
		"meeting_id", params.MeetingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to excuse user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("excuse_id", excuse.ID).InfoContext(ctx, "user excused")
	}()

	if err = RequireAdmin(params.Principal); err != nil {
		return
	}

	err = s.write(ctx, "excuse directly", func(ctx context.Context, tx persistence.Tx) error {
		if _, err := getUser(ctx, tx, params.UserID); err != nil {
			return err
		}
		meeting, err := excusableMeeting(ctx, tx, params.MeetingID)
		if err != nil {
			return err
		}
		if err := ensureNotExcused(ctx, tx, params.UserID, meeting.ID); err != nil {
			return err
		}

		periodID := params.PeriodID
		if periodID == "" {
			periodID, err = containingPeriod(ctx, tx, meeting.Start, s.location)
		} else {
			_, err = getPeriod(ctx, tx, periodID)
		}
		if err != nil {
			return err
		}

		excuse = Excuse{
			ID:                s.idGenerator(),
			UserID:            params.UserID,
			MeetingID:         meeting.ID,
			ReportingPeriodID: periodID,
			Reason:            strings.TrimSpace(params.Reason),
			CreatorID:         params.Principal.UserID,
			CreatedAt:         s.now(),
		}
		return createExcuse(ctx, tx, excuse)
	})
	if err != nil {
		excuse = Excuse{}
		return
	}
	observability.RecordExcuseTransition("direct")
	return
}

// ListPending returns pending requests for administrators, newest first.
func (s *ExcuseService) ListPending(ctx context.Context, principal Principal) ([]ExcuseRequest, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}
	return s.listRequests(ctx, persistence.ExcuseRequestFilter{Status: persistence.ExcuseStatusPending})
}

// ListRecentlyReviewed returns up to limit reviewed requests, most recently reviewed first.
func (s *ExcuseService) ListRecentlyReviewed(ctx context.Context, principal Principal, limit int) ([]ExcuseRequest, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.listRequests(ctx, persistence.ExcuseRequestFilter{NotStatus: persistence.ExcuseStatusPending, Limit: limit})
}

func (s *ExcuseService) listRequests(ctx context.Context, filter persistence.ExcuseRequestFilter) ([]ExcuseRequest, error) {
	var requests []ExcuseRequest
	err := s.read(ctx, "list excuse requests", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		requests, err = tx.ExcuseRequests().ListRequests(ctx, filter)
		return err
	})
	return requests, err
}

func (s *ExcuseService) review(ctx context.Context, tx persistence.Tx, request ExcuseRequest, status persistence.ExcuseStatus, params ReviewExcuseParams) error {
	reviewedAt := s.now()
	request.Status = status
	request.ReviewerID = params.Principal.UserID
	request.ReviewedAt = &reviewedAt
	request.AdminNote = strings.TrimSpace(params.Note)
	return tx.ExcuseRequests().UpdateRequest(ctx, request)
}

func pendingRequest(ctx context.Context, tx persistence.Tx, id string) (ExcuseRequest, error) {
	request, err := tx.ExcuseRequests().GetRequest(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return ExcuseRequest{}, ErrNotFound
	}
	if err != nil {
		return ExcuseRequest{}, err
	}
	if request.Status != persistence.ExcuseStatusPending {
		return ExcuseRequest{}, ErrNotPending
	}
	return request, nil
}

// requestedMeeting resolves the meeting an excuse request names, either by
// ID or as the single meeting of any type held on the requested date.
func (s *ExcuseService) requestedMeeting(ctx context.Context, tx persistence.Tx, params SubmitExcuseParams) (Meeting, error) {
	if params.MeetingID != "" || params.Date.IsZero() {
		return excusableMeeting(ctx, tx, params.MeetingID)
	}

	day := params.Date.Span(s.location)
	meetings, err := tx.Meetings().ListMeetings(ctx, persistence.MeetingFilter{
		StartsFrom:   &day.Start,
		StartsBefore: &day.End,
	})
	if err != nil {
		return Meeting{}, err
	}
	switch len(meetings) {
	case 0:
		return Meeting{}, ErrNoMatchingMeeting
	case 1:
	default:
		return Meeting{}, fmt.Errorf("%w: %d meetings on %s", ErrAmbiguousMeeting, len(meetings), params.Date)
	}
	if meetings[0].Type == persistence.MeetingTypeOutreach {
		return Meeting{}, ErrOutreachNotExcusable
	}
	return meetings[0], nil
}

func excusableMeeting(ctx context.Context, tx persistence.Tx, id string) (Meeting, error) {
	meeting, err := getMeeting(ctx, tx, id)
	if err != nil {
		return Meeting{}, err
	}
	if meeting.Type == persistence.MeetingTypeOutreach {
		return Meeting{}, ErrOutreachNotExcusable
	}
	return meeting, nil
}

func ensureNotExcused(ctx context.Context, tx persistence.Tx, userID, meetingID string) error {
	_, err := tx.Excuses().GetExcuse(ctx, userID, meetingID)
	if err == nil {
		return ErrAlreadyExcused
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	return err
}

func createExcuse(ctx context.Context, tx persistence.Tx, excuse Excuse) error {
	err := tx.Excuses().CreateExcuse(ctx, excuse)
	switch {
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExcused
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	return err
}
