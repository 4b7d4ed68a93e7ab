package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/attendance-engine/internal/persistence"
)

const (
	excuseColumns  = `id, user_id, meeting_id, reporting_period_id, reason, creator_id, excuse_request_id, created_at`
	requestColumns = `id, user_id, meeting_id, reason, status, requested_at, reviewer_id, reviewed_at, admin_note`
)

// CreateExcuse inserts an excuse; a second excuse for the pair is a duplicate.
func (r *txRepos) CreateExcuse(ctx context.Context, excuse persistence.Excuse) error {
	_, err := r.exec(ctx, `
		INSERT INTO excuses (`+excuseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		excuse.ID,
		excuse.UserID,
		excuse.MeetingID,
		nullString(excuse.ReportingPeriodID),
		excuse.Reason,
		nullString(excuse.CreatorID),
		nullString(excuse.ExcuseRequestID),
		encodeTime(excuse.CreatedAt),
	)
	return err
}

// GetExcuse retrieves the excuse for a (user, meeting) pair.
func (r *txRepos) GetExcuse(ctx context.Context, userID, meetingID string) (persistence.Excuse, error) {
	return r.scanExcuse(r.queryRow(ctx,
		`SELECT `+excuseColumns+` FROM excuses WHERE user_id = ? AND meeting_id = ?`,
		userID, meetingID,
	))
}

// ListExcuses returns excuses matching filter ordered by creation time.
func (r *txRepos) ListExcuses(ctx context.Context, filter persistence.ExcuseFilter) ([]persistence.Excuse, error) {
	if filter.MeetingIDs != nil && len(filter.MeetingIDs) == 0 {
		return []persistence.Excuse{}, nil
	}

	var (
		clauses []string
		args    []any
	)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(filter.MeetingIDs) > 0 {
		clauses = append(clauses, "meeting_id IN ("+placeholders(len(filter.MeetingIDs))+")")
		args = append(args, stringArgs(filter.MeetingIDs)...)
	}

	query := `SELECT ` + excuseColumns + ` FROM excuses`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excuses := make([]persistence.Excuse, 0)
	for rows.Next() {
		excuse, err := r.scanExcuse(rows)
		if err != nil {
			return nil, err
		}
		excuses = append(excuses, excuse)
	}
	return excuses, r.mapper.MapError(rows.Err())
}

func (r *txRepos) scanExcuse(row scanner) (persistence.Excuse, error) {
	var (
		excuse                     persistence.Excuse
		periodID, creator, request sql.NullString
		created                    string
	)
	if err := row.Scan(&excuse.ID, &excuse.UserID, &excuse.MeetingID, &periodID, &excuse.Reason, &creator, &request, &created); err != nil {
		return persistence.Excuse{}, r.mapper.MapError(err)
	}
	var err error
	if excuse.CreatedAt, err = decodeTime("created_at", created); err != nil {
		return persistence.Excuse{}, err
	}
	excuse.ReportingPeriodID = periodID.String
	excuse.CreatorID = creator.String
	excuse.ExcuseRequestID = request.String
	return excuse, nil
}

// CreateRequest inserts an excuse request.
func (r *txRepos) CreateRequest(ctx context.Context, request persistence.ExcuseRequest) error {
	_, err := r.exec(ctx, `
		INSERT INTO excuse_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.UserID,
		request.MeetingID,
		request.Reason,
		string(request.Status),
		encodeTime(request.RequestedAt),
		nullString(request.ReviewerID),
		encodeOptionalTime(request.ReviewedAt),
		request.AdminNote,
	)
	return err
}

// UpdateRequest stores the review state of a request.
func (r *txRepos) UpdateRequest(ctx context.Context, request persistence.ExcuseRequest) error {
	return r.execOne(ctx, `
		UPDATE excuse_requests
		SET reason = ?, status = ?, reviewer_id = ?, reviewed_at = ?, admin_note = ?
		WHERE id = ?`,
		request.Reason,
		string(request.Status),
		nullString(request.ReviewerID),
		encodeOptionalTime(request.ReviewedAt),
		request.AdminNote,
		request.ID,
	)
}

// GetRequest retrieves a request by ID.
func (r *txRepos) GetRequest(ctx context.Context, id string) (persistence.ExcuseRequest, error) {
	return r.scanRequest(r.queryRow(ctx, `SELECT `+requestColumns+` FROM excuse_requests WHERE id = ?`, id))
}

// FindPending returns the pending request for a (user, meeting) pair.
func (r *txRepos) FindPending(ctx context.Context, userID, meetingID string) (persistence.ExcuseRequest, error) {
	return r.scanRequest(r.queryRow(ctx, `
		SELECT `+requestColumns+` FROM excuse_requests
		WHERE user_id = ? AND meeting_id = ? AND status = ?
		ORDER BY requested_at ASC, id ASC
		LIMIT 1`,
		userID, meetingID, string(persistence.ExcuseStatusPending),
	))
}

// ListRequests returns requests newest first by review time, falling back to request time.
func (r *txRepos) ListRequests(ctx context.Context, filter persistence.ExcuseRequestFilter) ([]persistence.ExcuseRequest, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.NotStatus != "" {
		clauses = append(clauses, "status <> ?")
		args = append(args, string(filter.NotStatus))
	}

	query := `SELECT ` + requestColumns + ` FROM excuse_requests`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY COALESCE(reviewed_at, requested_at) DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]persistence.ExcuseRequest, 0)
	for rows.Next() {
		request, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, r.mapper.MapError(rows.Err())
}

func (r *txRepos) scanRequest(row scanner) (persistence.ExcuseRequest, error) {
	var (
		request             persistence.ExcuseRequest
		status, requestedAt string
		reviewer, reviewed  sql.NullString
	)
	if err := row.Scan(&request.ID, &request.UserID, &request.MeetingID, &request.Reason, &status, &requestedAt, &reviewer, &reviewed, &request.AdminNote); err != nil {
		return persistence.ExcuseRequest{}, r.mapper.MapError(err)
	}
	var err error
	if request.RequestedAt, err = decodeTime("requested_at", requestedAt); err != nil {
		return persistence.ExcuseRequest{}, err
	}
	if request.ReviewedAt, err = decodeOptionalTime("reviewed_at", reviewed); err != nil {
		return persistence.ExcuseRequest{}, err
	}
	request.Status = persistence.ExcuseStatus(status)
	request.ReviewerID = reviewer.String
	return request, nil
}
