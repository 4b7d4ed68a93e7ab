package migration

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestFileScanner_Scan(t *testing.T) {
	tests := []struct {
		name          string
		files         map[string]string
		expectedOrder []string
		expectErr     error
		errorContains string
	}{
		{
			name: "sorts by numeric version",
			files: map[string]string{
				"migrations/010_add_batches.sql":    "CREATE TABLE import_batches (id TEXT PRIMARY KEY);",
				"migrations/001_initial_schema.sql": "CREATE TABLE users (id TEXT PRIMARY KEY);",
				"migrations/002_add_attendance.sql": "CREATE TABLE attendance_records (id TEXT PRIMARY KEY);",
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "ignores non-SQL files",
			files: map[string]string{
				"migrations/001_initial_schema.sql": "CREATE TABLE users (id TEXT PRIMARY KEY);",
				"migrations/README.md":              "# notes",
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "rejects invalid file names",
			files: map[string]string{
				"migrations/initial.sql": "CREATE TABLE users (id TEXT PRIMARY KEY);",
			},
			expectErr:     ErrInvalidMigrationFile,
			errorContains: "does not match pattern",
		},
		{
			name: "rejects duplicate versions",
			files: map[string]string{
				"migrations/001_users.sql":    "CREATE TABLE users (id TEXT PRIMARY KEY);",
				"migrations/001_meetings.sql": "CREATE TABLE meetings (id TEXT PRIMARY KEY);",
			},
			expectErr: ErrDuplicateVersion,
		},
		{
			name: "rejects comment-only files",
			files: map[string]string{
				"migrations/001_empty.sql": "-- nothing here\n",
			},
			expectErr: ErrInvalidMigrationFile,
		},
		{
			name: "rejects unbalanced parentheses",
			files: map[string]string{
				"migrations/001_broken.sql": "CREATE TABLE users (id TEXT PRIMARY KEY;",
			},
			expectErr:     ErrInvalidMigrationFile,
			errorContains: "parenthesis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for name, content := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(content)}
			}

			migrations, err := NewFileScanner(fsys, "migrations").Scan()
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Fatalf("expected %v, got %v", tt.expectErr, err)
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan returned error: %v", err)
			}
			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Errorf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
				if len(migrations[i].Checksum) != 64 {
					t.Errorf("expected 64 hex chars of checksum, got %q", migrations[i].Checksum)
				}
			}
		})
	}
}

func TestFileScanner_DescriptionFromHeader(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/001_initial_schema.sql": {Data: []byte("-- Migration: 001\n-- Description: Attendance ledger tables\nCREATE TABLE users (id TEXT PRIMARY KEY);")},
		"migrations/002_add_index.sql":      {Data: []byte("CREATE INDEX idx_users_id ON users(id);")},
	}

	migrations, err := NewFileScanner(fsys, "migrations").Scan()
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if migrations[0].Description != "Attendance ledger tables" {
		t.Errorf("unexpected description %q", migrations[0].Description)
	}
	if migrations[1].Description != "add index" {
		t.Errorf("expected fallback to file name, got %q", migrations[1].Description)
	}
}

func TestSplitStatements(t *testing.T) {
	sqlText := `-- header
CREATE TABLE a (id TEXT);
-- between
CREATE INDEX idx_a ON a(id);
`
	statements := SplitStatements(sqlText)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE INDEX idx_a ON a(id)" {
		t.Errorf("unexpected second statement %q", statements[1])
	}
}

func TestChecksum_IsStable(t *testing.T) {
	if Checksum("CREATE TABLE a (id TEXT);") != Checksum("CREATE TABLE a (id TEXT);") {
		t.Fatal("checksum should be deterministic")
	}
	if Checksum("a") == Checksum("b") {
		t.Fatal("different content should produce different checksums")
	}
}
