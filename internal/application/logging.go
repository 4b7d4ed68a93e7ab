package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/attendance-engine/internal/importer"
	"github.com/example/attendance-engine/internal/logging"
)

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrMeetingNotFound):
		return "meeting_not_found"
	case errors.Is(err, ErrNoMatchingMeeting):
		return "no_matching_meeting"
	case errors.Is(err, ErrAmbiguousMeeting):
		return "ambiguous_meeting"
	case errors.Is(err, ErrNoExistingRecord):
		return "no_existing_record"
	case errors.Is(err, ErrAlreadyLogged):
		return "already_logged"
	case errors.Is(err, ErrDuplicatePending):
		return "duplicate_pending"
	case errors.Is(err, ErrAlreadyExcused):
		return "already_excused"
	case errors.Is(err, ErrAlreadyReviewed):
		return "already_reviewed"
	case errors.Is(err, ErrOutreachNotExcusable):
		return "outreach_not_excusable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrPersistenceFailure):
		return "persistence"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var rowErr *importer.RowError
	if errors.As(err, &rowErr) {
		return "import_row"
	}

	return "unexpected"
}
