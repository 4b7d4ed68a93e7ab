package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/attendance-engine/internal/interval"
)

// timestampLayout is fixed width and always UTC so that TEXT comparison in
// SQL matches chronological order.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func decodeTime(column, value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func encodeOptionalTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}

func decodeOptionalTime(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := decodeTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeOptionalFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func decodeOptionalFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func decodeDate(column, value string) (interval.Date, error) {
	d, err := interval.ParseDate(value)
	if err != nil {
		return interval.Date{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return d, nil
}
