package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/example/attendance-engine/internal/importer"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/observability"
	"github.com/example/attendance-engine/internal/persistence"
)

const (
	importedExcuseReason = "Imported from CSV — excused absence"
	bonusAnnotation      = "(Bonus Hours)"
	placeholderDomain    = "placeholder.invalid"
)

// ImportOptions tune the bulk importer. Zero values use the sheet defaults.
type ImportOptions struct {
	Schedule           *importer.Schedule
	AttendanceTrailing int
	OutreachTrailing   int
}

// ImportService loads historical sheets into the catalog and ledger.
type ImportService struct {
	serviceBase
	opts ImportOptions
}

// NewImportService wires dependencies for the import service.
func NewImportService(deps Dependencies, opts ImportOptions) *ImportService {
	base := newServiceBase(deps)
	if opts.Schedule == nil {
		opts.Schedule = importer.DefaultSchedule(base.location)
	}
	return &ImportService{serviceBase: base, opts: opts}
}

func (s *ImportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ImportService", operation, attrs...)
}

// Import parses the table and writes it in one transaction. Row level
// problems are collected as diagnostics and never abort the import.
func (s *ImportService) Import(ctx context.Context, params ImportParams) (result ImportResult, err error) {
	if s == nil {
		err = fmt.Errorf("ImportService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Import",
		"principal_id", params.Principal.UserID,
		"kind", string(params.Kind),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "import failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"batch_id", result.BatchID,
			"rows", result.RowsImported,
			"meetings_created", result.MeetingsCreated,
			"records_created", result.RecordsCreated,
			"records_updated", result.RecordsUpdated,
			"excuses_created", result.ExcusesCreated,
			"users_created", result.UsersCreated,
			"diagnostics", len(result.Diagnostics),
		).InfoContext(ctx, "import finished")
	}()

	if err = RequireAdmin(params.Principal); err != nil {
		return
	}

	plan, err := importer.Parse(params.Table, params.Kind, importer.Options{TrailingIgnored: s.trailing(params.Kind)})
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("table", err.Error())
		err = vErr
		return
	}
	checksum := importer.Checksum(params.Table)

	err = s.write(ctx, "import", func(ctx context.Context, tx persistence.Tx) error {
		// The closure may run again when the store retries a locked transaction.
		result = ImportResult{Checksum: checksum, Diagnostics: append([]importer.RowError(nil), plan.Diagnostics...)}
		run := importRun{service: s, tx: tx, principal: params.Principal, plan: plan, result: &result}
		return run.execute(ctx)
	})
	if err != nil {
		result = ImportResult{}
		return
	}

	observability.RecordImportRows(string(plan.Kind), "imported", result.RowsImported)
	observability.RecordImportRows(string(plan.Kind), "diagnostic", len(result.Diagnostics))
	for _, diag := range result.Diagnostics {
		logger.WarnContext(ctx, "import diagnostic", "line", diag.Line, "column", diag.Column, "error", diag.Err, "error_kind", ErrorKind(&diag))
	}
	return
}

func (s *ImportService) trailing(kind importer.Kind) int {
	switch kind {
	case importer.KindAttendance:
		return s.opts.AttendanceTrailing
	case importer.KindOutreach:
		return s.opts.OutreachTrailing
	}
	return 0
}

type importRun struct {
	service   *ImportService
	tx        persistence.Tx
	principal Principal
	plan      importer.Plan
	result    *ImportResult

	users   []User
	columns map[int]User
}

func (r *importRun) execute(ctx context.Context) error {
	previous, err := r.tx.Imports().FindBatchByChecksum(ctx, r.result.Checksum)
	switch {
	case err == nil:
		r.result.Diagnostics = append([]importer.RowError{{
			Line:   0,
			Column: -1,
			Value:  previous.ID,
			Err:    fmt.Errorf("%w as batch %s", importer.ErrDuplicateImport, previous.ID),
		}}, r.result.Diagnostics...)
	case !errors.Is(err, persistence.ErrNotFound):
		return err
	}

	if err := r.resolveUsers(ctx); err != nil {
		return err
	}
	meetingType := persistence.MeetingTypeRegular
	if r.plan.Kind == importer.KindOutreach {
		meetingType = persistence.MeetingTypeOutreach
	}
	for _, row := range r.plan.Rows {
		meeting, err := r.materialize(ctx, row, meetingType)
		if err != nil {
			return err
		}
		for _, cell := range row.Cells {
			user, ok := r.columns[cell.Column]
			if !ok {
				continue
			}
			switch {
			case cell.Excused:
				err = r.excuse(ctx, user, meeting)
			case exceedsMeeting(meeting, cell.Hours):
				r.result.Diagnostics = append(r.result.Diagnostics, importer.RowError{
					Line:   row.Line,
					Column: cell.Column,
					User:   cell.User,
					Value:  strconv.FormatFloat(cell.Hours, 'f', -1, 64),
					Err:    importer.ErrHoursExceedLength,
				})
			default:
				err = r.record(ctx, user, meeting, cell.Hours)
			}
			if err != nil {
				return err
			}
		}
		r.result.RowsImported++
	}

	batch := persistence.ImportBatch{
		ID:              r.service.idGenerator(),
		Kind:            string(r.plan.Kind),
		Checksum:        r.result.Checksum,
		MeetingsCreated: r.result.MeetingsCreated,
		RecordsCreated:  r.result.RecordsCreated,
		RecordsUpdated:  r.result.RecordsUpdated,
		ExcusesCreated:  r.result.ExcusesCreated,
		UsersCreated:    r.result.UsersCreated,
		Diagnostics:     len(r.result.Diagnostics),
		CreatorID:       r.principal.UserID,
		CreatedAt:       r.service.now(),
	}
	if err := r.tx.Imports().CreateBatch(ctx, batch); err != nil {
		return err
	}
	r.result.BatchID = batch.ID
	return nil
}

// resolveUsers maps every header column to a user: exact display name,
// then email for tokens containing @, then a case-folded substring match.
// Unknown names become placeholder users.
func (r *importRun) resolveUsers(ctx context.Context) error {
	users, err := r.tx.Users().ListUsers(ctx)
	if err != nil {
		return err
	}
	r.users = users
	r.columns = make(map[int]User, len(r.plan.Users))

	for _, col := range r.plan.Users {
		user, ok := matchUser(r.users, col.Name)
		if !ok {
			user, err = r.placeholder(ctx, col.Name)
			if err != nil {
				return err
			}
		}
		r.columns[col.Index] = user
	}
	return nil
}

func matchUser(users []User, token string) (User, bool) {
	for _, u := range users {
		if u.DisplayName == token {
			return u, true
		}
	}
	if strings.Contains(token, "@") {
		for _, u := range users {
			if strings.EqualFold(u.Email, token) {
				return u, true
			}
		}
	}
	fold := cases.Fold()
	needle := fold.String(token)
	for _, u := range users {
		if strings.Contains(fold.String(u.DisplayName), needle) || strings.Contains(fold.String(u.Email), needle) {
			return u, true
		}
	}
	return User{}, false
}

func (r *importRun) placeholder(ctx context.Context, token string) (User, error) {
	email := strings.ToLower(token)
	if !strings.Contains(token, "@") {
		email = fmt.Sprintf("import-%s@%s", uuid.NewSHA1(uuid.NameSpaceOID, []byte(token)), placeholderDomain)
	}
	now := r.service.now()
	user := User{
		ID:          r.service.idGenerator(),
		Email:       email,
		DisplayName: token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.tx.Users().CreateUser(ctx, user); err != nil {
		return User{}, err
	}
	r.users = append(r.users, user)
	r.result.UsersCreated++
	return user, nil
}

func (r *importRun) materialize(ctx context.Context, row importer.Row, meetingType MeetingType) (Meeting, error) {
	span := r.service.opts.Schedule.Interval(row.Date, row.Length)
	existing, err := r.tx.Meetings().FindMeetingByStart(ctx, span.Start, meetingType)
	if err == nil {
		r.result.MeetingsReused++
		return existing, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return Meeting{}, err
	}

	description := row.Description
	if row.Bonus() {
		description = strings.TrimSpace(description + " " + bonusAnnotation)
	}
	meeting := Meeting{
		ID:          r.service.idGenerator(),
		Start:       span.Start,
		End:         span.End,
		Type:        meetingType,
		Description: description,
		CreatorID:   r.principal.UserID,
		CreatedAt:   r.service.now(),
	}
	if err := r.tx.Meetings().CreateMeeting(ctx, meeting); err != nil {
		return Meeting{}, err
	}
	r.result.MeetingsCreated++
	return meeting, nil
}

func (r *importRun) excuse(ctx context.Context, user User, meeting Meeting) error {
	err := ensureNotExcused(ctx, r.tx, user.ID, meeting.ID)
	if errors.Is(err, ErrAlreadyExcused) {
		r.result.ExcusesSkipped++
		return nil
	}
	if err != nil {
		return err
	}
	periodID, err := containingPeriod(ctx, r.tx, meeting.Start, r.service.location)
	if err != nil {
		return err
	}
	excuse := Excuse{
		ID:                r.service.idGenerator(),
		UserID:            user.ID,
		MeetingID:         meeting.ID,
		ReportingPeriodID: periodID,
		Reason:            importedExcuseReason,
		CreatorID:         r.principal.UserID,
		CreatedAt:         r.service.now(),
	}
	if err := r.tx.Excuses().CreateExcuse(ctx, excuse); err != nil {
		return err
	}
	r.result.ExcusesCreated++
	return nil
}

// exceedsMeeting reports whether hours run past the meeting the row resolved
// to. Zero-length meetings take any number of hours.
func exceedsMeeting(meeting Meeting, hours float64) bool {
	span := meeting.Interval()
	return !span.IsInstant() && interval.HoursToDuration(hours) > span.Duration()
}

func partialOf(meeting Meeting, hours float64) bool {
	span := meeting.Interval()
	return !span.IsInstant() && interval.HoursToDuration(hours) < span.Duration()
}

// record writes hours for a sheet cell. Re-imports overwrite the stored
// hours and drop any explicit interval.
func (r *importRun) record(ctx context.Context, user User, meeting Meeting, hours float64) error {
	now := r.service.now()
	existing, err := r.tx.Attendance().GetRecord(ctx, user.ID, meeting.ID)
	if err == nil {
		existing.AttendedStart = nil
		existing.AttendedEnd = nil
		existing.AttendedHours = &hours
		existing.IsPartial = partialOf(meeting, hours)
		existing.UpdatedAt = now
		if err := r.tx.Attendance().UpdateRecord(ctx, existing); err != nil {
			return err
		}
		r.result.RecordsUpdated++
		return nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	record := AttendanceRecord{
		ID:            r.service.idGenerator(),
		UserID:        user.ID,
		MeetingID:     meeting.ID,
		AttendedHours: &hours,
		IsPartial:     partialOf(meeting, hours),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.tx.Attendance().CreateRecord(ctx, record); err != nil {
		return err
	}
	r.result.RecordsCreated++
	return nil
}
