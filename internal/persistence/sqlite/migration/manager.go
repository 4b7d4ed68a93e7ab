package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Manager orchestrates scanning, sequence validation and execution.
type Manager struct {
	source   Source
	executor Executor
	logger   *slog.Logger

	// VerifyChecksums rejects runs where an applied migration file has changed.
	VerifyChecksums bool
}

// NewManager creates a migration manager. A nil logger falls back to slog.Default().
func NewManager(source Source, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:          source,
		executor:        executor,
		logger:          logger.With("component", "migration"),
		VerifyChecksums: true,
	}
}

// Run executes all pending migrations in version order and returns how many ran.
func (m *Manager) Run(ctx context.Context) (int, error) {
	started := time.Now()

	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date")
		return 0, nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "pending", len(pending))

	for i, migration := range pending {
		migrationStarted := time.Now()
		logger := m.logger.With("version", migration.Version, "file", migration.FilePath)
		logger.InfoContext(ctx, "executing migration",
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(pending)),
			"checksum", migration.Checksum,
		)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return i, NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStarted)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return i, NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations complete", "applied", len(pending), "duration", time.Since(started))
	return len(pending), nil
}

// Pending returns the migrations not yet recorded in the version table.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.PendingMigrations, nil
}

// Status compares the available migrations against the version table.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.source.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := m.validateSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[a.Version] = a
	}

	status := &Status{AppliedMigrations: applied}
	maxVersion := -1
	for _, migration := range available {
		record, ok := appliedByVersion[migration.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if m.VerifyChecksums && record.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, record.Checksum, migration.Checksum))
		}
		if v, _ := strconv.Atoi(migration.Version); v > maxVersion {
			maxVersion = v
			status.CurrentVersion = migration.Version
		}
	}
	status.PendingCount = len(status.PendingMigrations)
	return status, nil
}

// validateSequence ensures there are no gaps in the available versions and
// that every applied version still has a file.
func (m *Manager) validateSequence(available []Migration, applied []AppliedMigration) error {
	present := make(map[int]bool, len(available))
	var versions []int
	for _, migration := range available {
		v, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version '%s' is not numeric", ErrInvalidVersion, migration.Version))
		}
		present[v] = true
		versions = append(versions, v)
	}

	if len(versions) > 0 {
		for v := versions[0]; v <= versions[len(versions)-1]; v++ {
			if !present[v] {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, v)
			}
		}
	}

	for _, a := range applied {
		v, err := strconv.Atoi(a.Version)
		if err != nil {
			return NewDatabaseError(a.Version, "", "validate sequence",
				fmt.Errorf("%w: applied version '%s' is not numeric", ErrVersionTableCorrupt, a.Version))
		}
		if !present[v] {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations", ErrVersionConflict, v)
		}
	}
	return nil
}
