package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/logging"
	"github.com/example/attendance-engine/internal/persistence"
)

// Dependencies are shared by every service.
type Dependencies struct {
	Store       persistence.Store
	IDGenerator func() string
	Now         func() time.Time
	// Location is the engine time zone used for calendar dates. Nil means UTC.
	Location *time.Location
	Logger   *slog.Logger
}

type serviceBase struct {
	store       persistence.Store
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

func newServiceBase(deps Dependencies) serviceBase {
	base := serviceBase{
		store:       deps.Store,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		location:    deps.Location,
		logger:      logging.OrDefault(deps.Logger),
	}
	if base.idGenerator == nil {
		base.idGenerator = func() string { return "" }
	}
	if base.now == nil {
		base.now = time.Now
	}
	if base.location == nil {
		base.location = time.UTC
	}
	return base
}

func (b serviceBase) write(ctx context.Context, op string, fn persistence.TxFunc) error {
	if b.store == nil {
		return fmt.Errorf("store not configured")
	}
	return boundary(op, b.store.WithinTx(ctx, fn))
}

func (b serviceBase) read(ctx context.Context, op string, fn persistence.TxFunc) error {
	if b.store == nil {
		return fmt.Errorf("store not configured")
	}
	return boundary(op, b.store.ReadTx(ctx, fn))
}

var domainErrors = []error{
	ErrUnauthorized,
	ErrNotFound,
	ErrAlreadyExists,
	ErrInvalidInterval,
	ErrInvalidRange,
	ErrMeetingNotFound,
	ErrNoMatchingMeeting,
	ErrNoExistingRecord,
	ErrAlreadyLogged,
	ErrDuplicatePending,
	ErrAlreadyExcused,
	ErrAlreadyReviewed,
	ErrOutreachNotExcusable,
	ErrPersistenceFailure,
}

// boundary passes domain errors through and wraps everything else in a
// PersistenceError.
func boundary(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func getMeeting(ctx context.Context, tx persistence.Tx, id string) (Meeting, error) {
	meeting, err := tx.Meetings().GetMeeting(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return Meeting{}, ErrMeetingNotFound
	}
	return meeting, err
}

func getUser(ctx context.Context, tx persistence.Tx, id string) (User, error) {
	user, err := tx.Users().GetUser(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return User{}, ErrNotFound
	}
	return user, err
}

func getPeriod(ctx context.Context, tx persistence.Tx, id string) (ReportingPeriod, error) {
	period, err := tx.Periods().GetPeriod(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return ReportingPeriod{}, ErrNotFound
	}
	return period, err
}

// periodWindow returns [StartDate 00:00, EndDate+1 00:00) in loc.
func periodWindow(period ReportingPeriod, loc *time.Location) interval.Interval {
	return interval.Interval{Start: period.StartDate.In(loc), End: period.EndDate.AddDays(1).In(loc)}
}

func inPeriod(period ReportingPeriod, t time.Time, loc *time.Location) bool {
	window := periodWindow(period, loc)
	return !t.Before(window.Start) && t.Before(window.End)
}

func meetingsInPeriod(ctx context.Context, tx persistence.Tx, period ReportingPeriod, loc *time.Location) ([]Meeting, error) {
	window := periodWindow(period, loc)
	return tx.Meetings().ListMeetings(ctx, persistence.MeetingFilter{StartsFrom: &window.Start, StartsBefore: &window.End})
}

// containingPeriod returns the ID of the newest period containing t, or "".
func containingPeriod(ctx context.Context, tx persistence.Tx, t time.Time, loc *time.Location) (string, error) {
	periods, err := tx.Periods().ListPeriods(ctx)
	if err != nil {
		return "", err
	}
	for _, period := range periods {
		if inPeriod(period, t, loc) {
			return period.ID, nil
		}
	}
	return "", nil
}
