package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver

	"github.com/example/attendance-engine/internal/persistence"
)

// ErrDatabaseLocked is returned when SQLite reports a busy or locked database.
// Transactions failing with it are retried by the Store.
var ErrDatabaseLocked = errors.New("sqlite: database locked")

// Config describes how to reach the database.
type Config struct {
	// Driver is "sqlite" (modernc.org/sqlite) or "pgx" (PostgreSQL).
	Driver string
	// DSN is a file path or URI for sqlite, a connection string for pgx.
	DSN string

	BusyTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a SQLite configuration with sensible defaults.
func DefaultConfig(dsn string) Config {
	return Config{
		Driver:          "sqlite",
		DSN:             dsn,
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Validate reports configuration errors before a connection is attempted.
func (c Config) Validate() error {
	if _, err := DialectFor(c.Driver); err != nil {
		return err
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("sqlite: DSN cannot be empty")
	}
	if c.BusyTimeout < 0 || c.MaxOpenConns < 0 || c.MaxIdleConns < 0 || c.ConnMaxLifetime < 0 {
		return fmt.Errorf("sqlite: pool settings cannot be negative")
	}
	return nil
}

// Dialect captures the SQL differences between the supported drivers.
// Queries are written with '?' placeholders.
type Dialect struct {
	Name     string
	Driver   string
	numbered bool
}

var (
	// SQLite uses '?' placeholders.
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite"}
	// Postgres uses '$n' placeholders through the pgx stdlib driver.
	Postgres = Dialect{Name: "postgres", Driver: "pgx", numbered: true}
)

// DialectFor resolves a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("sqlite: unsupported driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders for the dialect. Quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ConnectionPool owns the *sql.DB and runs transactions on it.
type ConnectionPool struct {
	db      *sql.DB
	dialect Dialect
	mapper  *ErrorMapper
}

// NewConnectionPool opens and pings the database described by cfg.
func NewConnectionPool(ctx context.Context, cfg Config) (*ConnectionPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialect, _ := DialectFor(cfg.Driver)

	dsn := cfg.DSN
	if dialect == SQLite {
		dsn = sqliteDSN(cfg.DSN, cfg.BusyTimeout)
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect.Name, err)
	}

	return newPool(db, dialect), nil
}

func newPool(db *sql.DB, dialect Dialect) *ConnectionPool {
	return &ConnectionPool{db: db, dialect: dialect, mapper: NewErrorMapper()}
}

// sqliteDSN appends the per-connection pragmas modernc.org/sqlite understands.
func sqliteDSN(dsn string, busyTimeout time.Duration) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}

// DB returns the underlying database connection.
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Dialect returns the SQL dialect of the pool.
func (cp *ConnectionPool) Dialect() Dialect {
	return cp.dialect
}

// Close closes the connection pool.
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// TransactionFunc represents a function that executes within a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a transaction. The transaction is
// rolled back when fn returns an error or panics, and committed otherwise.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return cp.run(ctx, nil, true, fn)
}

// WithReadOnlyTransaction executes fn and always rolls back.
func (cp *ConnectionPool) WithReadOnlyTransaction(ctx context.Context, fn TransactionFunc) error {
	var opts *sql.TxOptions
	if cp.dialect == Postgres {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return cp.run(ctx, opts, false, fn)
}

func (cp *ConnectionPool) run(ctx context.Context, opts *sql.TxOptions, commit bool, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", cp.mapper.MapError(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if !commit {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("failed to close read-only transaction: %w", rbErr)
		}
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", cp.mapper.MapError(err))
	}
	return nil
}

// ErrorMapper maps driver errors to persistence layer errors. The driver
// error stays in the chain.
type ErrorMapper struct{}

// NewErrorMapper creates a new error mapper.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError maps SQLite and PostgreSQL errors to persistence sentinels.
func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", persistence.ErrDuplicate, err)
		case "23503":
			return fmt.Errorf("%w: %w", persistence.ErrForeignKeyViolation, err)
		case "23502", "23514":
			return fmt.Errorf("%w: %w", persistence.ErrConstraintViolation, err)
		case "40001", "55P03":
			return fmt.Errorf("%w: %w", ErrDatabaseLocked, err)
		}
		return err
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint failed", "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%w: %w", persistence.ErrDuplicate, err)
	case containsAny(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %w", persistence.ErrForeignKeyViolation, err)
	case containsAny(msg, "CHECK constraint failed", "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %w", persistence.ErrConstraintViolation, err)
	case containsAny(msg, "database is locked", "database table is locked", "SQLITE_BUSY"):
		return fmt.Errorf("%w: %w", ErrDatabaseLocked, err)
	}
	return err
}

func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// RetryConfig configures retry behavior for database operations.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns a retry configuration with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryHelper retries operations that failed with ErrDatabaseLocked.
type RetryHelper struct {
	config RetryConfig
}

// NewRetryHelper creates a new retry helper.
func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config}
}

// WithRetry executes fn, retrying with exponential backoff while it fails
// with ErrDatabaseLocked. Other errors are returned immediately.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := rh.config.InitialDelay

	for attempt := 0; attempt <= rh.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * rh.config.BackoffFactor)
				if delay > rh.config.MaxDelay {
					delay = rh.config.MaxDelay
				}
			}
		}

		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, ErrDatabaseLocked) {
			return lastErr
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", rh.config.MaxRetries, lastErr)
}
