package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const appliedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLExecutor implements Executor over database/sql. Queries are written
// with '?' placeholders and passed through bind, so the same executor
// serves SQLite and PostgreSQL.
type SQLExecutor struct {
	db   *sql.DB
	bind func(string) string
	now  func() time.Time
}

// NewSQLExecutor creates an executor. A nil bind leaves queries untouched.
func NewSQLExecutor(db *sql.DB, bind func(string) string) *SQLExecutor {
	if bind == nil {
		bind = func(q string) string { return q }
	}
	return &SQLExecutor{db: db, bind: bind, now: time.Now}
}

// ExecuteMigration runs a single migration within a transaction.
func (e *SQLExecutor) ExecuteMigration(ctx context.Context, migration Migration) (err error) {
	statements := SplitStatements(migration.SQL)
	if len(statements) == 0 {
		return NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError(migration.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return NewDatabaseError(migration.Version, stmt, fmt.Sprintf("execute statement %d", i+1), execErr)
		}
	}

	if err = tx.Commit(); err != nil {
		return NewDatabaseError(migration.Version, "", "commit transaction", err)
	}
	return nil
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL,
	checksum TEXT,
	execution_time_ms BIGINT
)`
	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewDatabaseError("", createTableSQL, "create schema_migrations table", err)
	}
	return nil
}

// RecordMigration stores a successful migration in the version table.
func (e *SQLExecutor) RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error {
	insertSQL := e.bind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	appliedAt := e.now().UTC().Format(appliedAtLayout)
	if _, err := e.db.ExecContext(ctx, insertSQL, migration.Version, appliedAt, migration.Checksum, executionTime.Milliseconds()); err != nil {
		return NewDatabaseError(migration.Version, insertSQL, "record migration", err)
	}
	return nil
}

// GetAppliedVersions returns all applied migrations ordered by version.
func (e *SQLExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const querySQL = `SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
FROM schema_migrations
ORDER BY version ASC`

	rows, err := e.db.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, NewDatabaseError("", querySQL, "get applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			version, appliedAtStr, checksum string
			executionTimeMs                 int64
		)
		if err := rows.Scan(&version, &appliedAtStr, &executionTimeMs, &checksum); err != nil {
			return nil, NewDatabaseError("", querySQL, "scan applied migration", err)
		}
		appliedAt, err := time.Parse(appliedAtLayout, appliedAtStr)
		if err != nil {
			return nil, NewDatabaseError(version, querySQL, "parse applied_at",
				fmt.Errorf("%w: %v", ErrVersionTableCorrupt, err))
		}
		applied = append(applied, AppliedMigration{
			Version:       version,
			AppliedAt:     appliedAt,
			ExecutionTime: time.Duration(executionTimeMs) * time.Millisecond,
			Checksum:      checksum,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", querySQL, "iterate applied migrations", err)
	}
	return applied, nil
}

// SplitStatements splits SQL content on semicolons and drops comment-only
// fragments.
func SplitStatements(sqlText string) []string {
	var statements []string
	for _, stmt := range strings.Split(sqlText, ";") {
		var kept []string
		for _, line := range strings.Split(stmt, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "--") {
				kept = append(kept, line)
			}
		}
		if len(kept) > 0 {
			statements = append(statements, strings.Join(kept, "\n"))
		}
	}
	return statements
}
