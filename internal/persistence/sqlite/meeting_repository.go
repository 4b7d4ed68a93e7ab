package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

const meetingColumns = `id, start_time, end_time, meeting_type, description, creator_id, created_at`

// CreateMeeting inserts a meeting.
func (r *txRepos) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" || meeting.End.Before(meeting.Start) {
		return persistence.ErrConstraintViolation
	}
	_, err := r.exec(ctx, `
		INSERT INTO meetings (id, start_time, end_time, meeting_type, description, creator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meeting.ID,
		encodeTime(meeting.Start),
		encodeTime(meeting.End),
		string(meeting.Type),
		meeting.Description,
		nullString(meeting.CreatorID),
		encodeTime(meeting.CreatedAt),
	)
	return err
}

// GetMeeting retrieves a meeting by ID.
func (r *txRepos) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	return r.scanMeeting(r.queryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
}

// FindMeetingByStart returns the first meeting of the type starting exactly at start.
func (r *txRepos) FindMeetingByStart(ctx context.Context, start time.Time, meetingType persistence.MeetingType) (persistence.Meeting, error) {
	return r.scanMeeting(r.queryRow(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE start_time = ? AND meeting_type = ?
		ORDER BY id ASC
		LIMIT 1`,
		encodeTime(start), string(meetingType),
	))
}

// ListMeetings returns meetings matching filter ordered by start then ID.
func (r *txRepos) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Type != "" {
		clauses = append(clauses, "meeting_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.StartsFrom != nil {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, encodeTime(*filter.StartsFrom))
	}
	if filter.StartsBefore != nil {
		clauses = append(clauses, "start_time < ?")
		args = append(args, encodeTime(*filter.StartsBefore))
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetings := make([]persistence.Meeting, 0)
	for rows.Next() {
		meeting, err := r.scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, r.mapper.MapError(rows.Err())
}

// DeleteMeeting removes the meeting and its dependent rows.
func (r *txRepos) DeleteMeeting(ctx context.Context, id string) error {
	for _, stmt := range []string{
		`DELETE FROM excuses WHERE meeting_id = ?`,
		`DELETE FROM attendance_records WHERE meeting_id = ?`,
		`DELETE FROM excuse_requests WHERE meeting_id = ?`,
	} {
		if _, err := r.exec(ctx, stmt, id); err != nil {
			return err
		}
	}
	return r.execOne(ctx, `DELETE FROM meetings WHERE id = ?`, id)
}

func (r *txRepos) scanMeeting(row scanner) (persistence.Meeting, error) {
	var (
		meeting                    persistence.Meeting
		start, end, created, mtype string
		creator                    sql.NullString
	)
	if err := row.Scan(&meeting.ID, &start, &end, &mtype, &meeting.Description, &creator, &created); err != nil {
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	var err error
	if meeting.Start, err = decodeTime("start_time", start); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.End, err = decodeTime("end_time", end); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.CreatedAt, err = decodeTime("created_at", created); err != nil {
		return persistence.Meeting{}, err
	}
	meeting.Type = persistence.MeetingType(mtype)
	meeting.CreatorID = creator.String
	return meeting, nil
}
