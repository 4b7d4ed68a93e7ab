package migration

import (
	"context"
	"time"
)

// Migration represents a versioned schema change.
type Migration struct {
	Version     string // numeric prefix of the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // hex BLAKE2b-256 of SQL
}

// AppliedMigration represents a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the schema state.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// Source lists the available migrations in ascending version order.
type Source interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations and maintains the version table.
type Executor interface {
	// ExecuteMigration runs every statement of one migration in a single transaction.
	ExecuteMigration(ctx context.Context, migration Migration) error
	InitializeVersionTable(ctx context.Context) error
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
