package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/attendance-engine/internal/persistence"
)

const (
	periodColumns = `id, name, start_date, end_date, creator_id, created_at`
	batchColumns  = `id, kind, checksum, meetings_created, records_created, records_updated, excuses_created, users_created, diagnostics, creator_id, created_at`
)

// CreatePeriod inserts a reporting period.
func (r *txRepos) CreatePeriod(ctx context.Context, period persistence.ReportingPeriod) error {
	_, err := r.exec(ctx, `
		INSERT INTO reporting_periods (`+periodColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		period.ID,
		period.Name,
		period.StartDate.String(),
		period.EndDate.String(),
		nullString(period.CreatorID),
		encodeTime(period.CreatedAt),
	)
	return err
}

// GetPeriod retrieves a period by ID.
func (r *txRepos) GetPeriod(ctx context.Context, id string) (persistence.ReportingPeriod, error) {
	return r.scanPeriod(r.queryRow(ctx, `SELECT `+periodColumns+` FROM reporting_periods WHERE id = ?`, id))
}

// ListPeriods returns periods newest first.
func (r *txRepos) ListPeriods(ctx context.Context) ([]persistence.ReportingPeriod, error) {
	rows, err := r.query(ctx, `SELECT `+periodColumns+` FROM reporting_periods ORDER BY start_date DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]persistence.ReportingPeriod, 0)
	for rows.Next() {
		period, err := r.scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, r.mapper.MapError(rows.Err())
}

func (r *txRepos) scanPeriod(row scanner) (persistence.ReportingPeriod, error) {
	var (
		period              persistence.ReportingPeriod
		start, end, created string
		creator             sql.NullString
	)
	if err := row.Scan(&period.ID, &period.Name, &start, &end, &creator, &created); err != nil {
		return persistence.ReportingPeriod{}, r.mapper.MapError(err)
	}
	var err error
	if period.StartDate, err = decodeDate("start_date", start); err != nil {
		return persistence.ReportingPeriod{}, err
	}
	if period.EndDate, err = decodeDate("end_date", end); err != nil {
		return persistence.ReportingPeriod{}, err
	}
	if period.CreatedAt, err = decodeTime("created_at", created); err != nil {
		return persistence.ReportingPeriod{}, err
	}
	period.CreatorID = creator.String
	return period, nil
}

// CreateBatch records an import batch.
func (r *txRepos) CreateBatch(ctx context.Context, batch persistence.ImportBatch) error {
	_, err := r.exec(ctx, `
		INSERT INTO import_batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.Kind,
		batch.Checksum,
		batch.MeetingsCreated,
		batch.RecordsCreated,
		batch.RecordsUpdated,
		batch.ExcusesCreated,
		batch.UsersCreated,
		batch.Diagnostics,
		nullString(batch.CreatorID),
		encodeTime(batch.CreatedAt),
	)
	return err
}

// FindBatchByChecksum returns the earliest batch with the given checksum.
func (r *txRepos) FindBatchByChecksum(ctx context.Context, checksum string) (persistence.ImportBatch, error) {
	var (
		batch   persistence.ImportBatch
		creator sql.NullString
		created string
	)
	err := r.queryRow(ctx, `
		SELECT `+batchColumns+` FROM import_batches
		WHERE checksum = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, checksum,
	).Scan(
		&batch.ID, &batch.Kind, &batch.Checksum,
		&batch.MeetingsCreated, &batch.RecordsCreated, &batch.RecordsUpdated,
		&batch.ExcusesCreated, &batch.UsersCreated, &batch.Diagnostics,
		&creator, &created,
	)
	if err != nil {
		return persistence.ImportBatch{}, r.mapper.MapError(err)
	}
	if batch.CreatedAt, err = decodeTime("created_at", created); err != nil {
		return persistence.ImportBatch{}, err
	}
	batch.CreatorID = creator.String
	return batch, nil
}
