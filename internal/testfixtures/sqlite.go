package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/attendance-engine/internal/persistence/sqlite"
)

// NewSQLiteStore opens a migrated SQLite store in a temporary directory. The
// store is closed when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "attendance.db")
	store, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close()
	})

	if _, err := store.Migrate(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return store
}
