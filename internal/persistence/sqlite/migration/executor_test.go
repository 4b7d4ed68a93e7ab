package migration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLExecutor_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	executor := NewSQLExecutor(db, nil)
	executor.now = func() time.Time { return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC) }
	ctx := context.Background()

	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable: %v", err)
	}
	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable should be idempotent: %v", err)
	}

	migration := Migration{
		Version:  "001",
		SQL:      "CREATE TABLE users (id TEXT PRIMARY KEY);\nCREATE INDEX idx_users_id ON users(id);",
		Checksum: "abc",
	}
	if err := executor.ExecuteMigration(ctx, migration); err != nil {
		t.Fatalf("ExecuteMigration: %v", err)
	}
	if err := executor.RecordMigration(ctx, migration, 1500*time.Millisecond); err != nil {
		t.Fatalf("RecordMigration: %v", err)
	}

	applied, err := executor.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied migration, got %d", len(applied))
	}
	got := applied[0]
	if got.Version != "001" || got.Checksum != "abc" || got.ExecutionTime != 1500*time.Millisecond {
		t.Fatalf("unexpected applied migration %+v", got)
	}
	if !got.AppliedAt.Equal(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected applied_at %s", got.AppliedAt)
	}
}

func TestSQLExecutor_RollsBackFailedMigration(t *testing.T) {
	db := setupTestDB(t)
	executor := NewSQLExecutor(db, nil)
	ctx := context.Background()

	broken := Migration{
		Version: "001",
		SQL:     "CREATE TABLE users (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);",
	}
	err := executor.ExecuteMigration(ctx, broken)
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'users'").Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatal("users table should not survive a failed migration")
	}
}

func TestSQLExecutor_RejectsEmptyMigration(t *testing.T) {
	executor := NewSQLExecutor(setupTestDB(t), nil)
	err := executor.ExecuteMigration(context.Background(), Migration{Version: "001", SQL: "-- only a comment"})
	if !errors.Is(err, ErrInvalidMigrationFile) {
		t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
	}
}
