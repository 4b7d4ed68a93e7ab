package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type stubSource struct {
	migrations []Migration
	err        error
}

func (s *stubSource) Scan() ([]Migration, error) {
	return s.migrations, s.err
}

type stubExecutor struct {
	applied    []AppliedMigration
	executeErr error
	recordErr  error
	initErr    error
	executed   []string
}

func (e *stubExecutor) ExecuteMigration(ctx context.Context, migration Migration) error {
	if e.executeErr != nil {
		return e.executeErr
	}
	e.executed = append(e.executed, migration.Version)
	return nil
}

func (e *stubExecutor) InitializeVersionTable(ctx context.Context) error {
	return e.initErr
}

func (e *stubExecutor) RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error {
	if e.recordErr != nil {
		return e.recordErr
	}
	e.applied = append(e.applied, AppliedMigration{Version: migration.Version, Checksum: migration.Checksum})
	return nil
}

func (e *stubExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	return e.applied, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMigrations() []Migration {
	return []Migration{
		{Version: "001", Description: "initial", SQL: "CREATE TABLE users (id TEXT);", FilePath: "migrations/001_initial.sql", Checksum: Checksum("CREATE TABLE users (id TEXT);")},
		{Version: "002", Description: "meetings", SQL: "CREATE TABLE meetings (id TEXT);", FilePath: "migrations/002_meetings.sql", Checksum: Checksum("CREATE TABLE meetings (id TEXT);")},
	}
}

func TestManager_RunAppliesOnlyPending(t *testing.T) {
	migrations := testMigrations()
	executor := &stubExecutor{applied: []AppliedMigration{{Version: "001", Checksum: migrations[0].Checksum}}}
	manager := NewManager(&stubSource{migrations: migrations}, executor, quietLogger())

	applied, err := manager.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 applied migration, got %d", applied)
	}
	if len(executor.executed) != 1 || executor.executed[0] != "002" {
		t.Fatalf("expected only 002 to run, got %v", executor.executed)
	}

	again, err := manager.Run(context.Background())
	if err != nil || again != 0 {
		t.Fatalf("second run should be a no-op, got %d, %v", again, err)
	}
}

func TestManager_RunStopsOnFailure(t *testing.T) {
	boom := errors.New("syntax error")
	executor := &stubExecutor{executeErr: boom}
	manager := NewManager(&stubSource{migrations: testMigrations()}, executor, quietLogger())

	_, err := manager.Run(context.Background())
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	var migrationErr *MigrationError
	if !errors.As(err, &migrationErr) || migrationErr.Version != "001" {
		t.Fatalf("expected MigrationError for 001, got %v", err)
	}
}

func TestManager_StatusDetectsGapsAndOrphans(t *testing.T) {
	gap := []Migration{{Version: "001", SQL: "x"}, {Version: "003", SQL: "y"}}
	manager := NewManager(&stubSource{migrations: gap}, &stubExecutor{}, quietLogger())
	if _, err := manager.Status(context.Background()); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected gap to be reported as ErrVersionConflict, got %v", err)
	}

	orphan := &stubExecutor{applied: []AppliedMigration{{Version: "004"}}}
	manager = NewManager(&stubSource{migrations: testMigrations()}, orphan, quietLogger())
	if _, err := manager.Status(context.Background()); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected orphaned version to be reported, got %v", err)
	}
}

func TestManager_StatusVerifiesChecksums(t *testing.T) {
	executor := &stubExecutor{applied: []AppliedMigration{{Version: "001", Checksum: "deadbeef"}}}
	manager := NewManager(&stubSource{migrations: testMigrations()}, executor, quietLogger())

	if _, err := manager.Status(context.Background()); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}

	manager.VerifyChecksums = false
	status, err := manager.Status(context.Background())
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "001" || status.PendingCount != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestManager_InitFailure(t *testing.T) {
	manager := NewManager(&stubSource{}, &stubExecutor{initErr: errors.New("read-only")}, quietLogger())
	if _, err := manager.Run(context.Background()); err == nil {
		t.Fatal("expected error when the version table cannot be created")
	}
}
