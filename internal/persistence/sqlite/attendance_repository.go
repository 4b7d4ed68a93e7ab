package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/attendance-engine/internal/persistence"
)

const recordColumns = `id, user_id, meeting_id, attended_start, attended_end, attended_hours, is_partial, notes, created_at, updated_at`

// CreateRecord inserts an attendance record. The (user_id, meeting_id)
// unique index turns a second insert into persistence.ErrDuplicate.
func (r *txRepos) CreateRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	_, err := r.exec(ctx, `
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.MeetingID,
		encodeOptionalTime(record.AttendedStart),
		encodeOptionalTime(record.AttendedEnd),
		encodeOptionalFloat(record.AttendedHours),
		record.IsPartial,
		record.Notes,
		encodeTime(record.CreatedAt),
		encodeTime(record.UpdatedAt),
	)
	return err
}

// UpdateRecord overwrites the mutable fields of a record.
func (r *txRepos) UpdateRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	return r.execOne(ctx, `
		UPDATE attendance_records
		SET attended_start = ?, attended_end = ?, attended_hours = ?, is_partial = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		encodeOptionalTime(record.AttendedStart),
		encodeOptionalTime(record.AttendedEnd),
		encodeOptionalFloat(record.AttendedHours),
		record.IsPartial,
		record.Notes,
		encodeTime(record.UpdatedAt),
		record.ID,
	)
}

// GetRecord retrieves the record for a (user, meeting) pair.
func (r *txRepos) GetRecord(ctx context.Context, userID, meetingID string) (persistence.AttendanceRecord, error) {
	return r.scanRecord(r.queryRow(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE user_id = ? AND meeting_id = ?`,
		userID, meetingID,
	))
}

// ListRecords returns records matching filter ordered by creation time.
func (r *txRepos) ListRecords(ctx context.Context, filter persistence.AttendanceFilter) ([]persistence.AttendanceRecord, error) {
	if filter.MeetingIDs != nil && len(filter.MeetingIDs) == 0 {
		return []persistence.AttendanceRecord{}, nil
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
	if filter.WithInterval {
		clauses = append(clauses, "attended_start IS NOT NULL AND attended_end IS NOT NULL")
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]persistence.AttendanceRecord, 0)
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, r.mapper.MapError(rows.Err())
}

func (r *txRepos) scanRecord(row scanner) (persistence.AttendanceRecord, error) {
	var (
		record             persistence.AttendanceRecord
		start, end         sql.NullString
		hours              sql.NullFloat64
		created, updatedAt string
	)
	if err := row.Scan(&record.ID, &record.UserID, &record.MeetingID, &start, &end, &hours, &record.IsPartial, &record.Notes, &created, &updatedAt); err != nil {
		return persistence.AttendanceRecord{}, r.mapper.MapError(err)
	}
	var err error
	if record.AttendedStart, err = decodeOptionalTime("attended_start", start); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	if record.AttendedEnd, err = decodeOptionalTime("attended_end", end); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	if record.CreatedAt, err = decodeTime("created_at", created); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	if record.UpdatedAt, err = decodeTime("updated_at", updatedAt); err != nil {
		return persistence.AttendanceRecord{}, err
	}
	record.AttendedHours = decodeOptionalFloat(hours)
	return record, nil
}
