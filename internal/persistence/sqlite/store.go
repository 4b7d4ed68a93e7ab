// Package sqlite implements persistence.Store on database/sql. SQLite
// (modernc.org/sqlite) is the default engine; the same queries run on
// PostgreSQL through the pgx stdlib driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/attendance-engine/internal/persistence"
	"github.com/example/attendance-engine/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQL-backed persistence.Store.
type Store struct {
	pool  *ConnectionPool
	retry *RetryHelper
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by cfg. Call Migrate before first use.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newStore(pool), nil
}

// NewStoreFromDB wraps an existing handle, e.g. one created by go-sqlmock.
func NewStoreFromDB(db *sql.DB, dialect Dialect) *Store {
	return newStore(newPool(db, dialect))
}

func newStore(pool *ConnectionPool) *Store {
	return &Store{pool: pool, retry: NewRetryHelper(DefaultRetryConfig())}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) (int, error) {
	scanner := migration.NewFileScanner(migrationsFS, "migrations")
	executor := migration.NewSQLExecutor(s.pool.DB(), s.pool.Dialect().Rebind)
	return migration.NewManager(scanner, executor, logger).Run(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// WithinTx runs fn in a read-write transaction, retrying when the database is locked.
func (s *Store) WithinTx(ctx context.Context, fn persistence.TxFunc) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(ctx, s.bind(tx))
		})
	})
}

// ReadTx runs fn in a transaction that is always rolled back.
func (s *Store) ReadTx(ctx context.Context, fn persistence.TxFunc) error {
	return s.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, s.bind(tx))
	})
}

func (s *Store) bind(tx *sql.Tx) *txRepos {
	return &txRepos{tx: tx, dialect: s.pool.Dialect(), mapper: s.pool.mapper}
}

// txRepos implements every repository interface on one transaction.
type txRepos struct {
	tx      *sql.Tx
	dialect Dialect
	mapper  *ErrorMapper
}

func (r *txRepos) Users() persistence.UserRepository                   { return r }
func (r *txRepos) Meetings() persistence.MeetingRepository             { return r }
func (r *txRepos) Attendance() persistence.AttendanceRepository        { return r }
func (r *txRepos) Excuses() persistence.ExcuseRepository               { return r }
func (r *txRepos) ExcuseRequests() persistence.ExcuseRequestRepository { return r }
func (r *txRepos) Periods() persistence.PeriodRepository               { return r }
func (r *txRepos) Imports() persistence.ImportBatchRepository          { return r }

func (r *txRepos) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := r.tx.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return result, nil
}

// execOne fails with ErrNotFound when no row was affected.
func (r *txRepos) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *txRepos) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := r.tx.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rows, nil
}

func (r *txRepos) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.tx.QueryRowContext(ctx, r.dialect.Rebind(query), args...)
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
