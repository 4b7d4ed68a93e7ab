package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ATTENDANCE_DB_DRIVER", "sqlite")
	t.Setenv("ATTENDANCE_DB_DSN", filepath.Join(dir, "attendance.db"))
	t.Setenv("ATTENDANCE_TIMEZONE", "UTC")
	t.Setenv("ATTENDANCE_CONFIG_FILE", "")
	t.Setenv("ATTENDANCE_LOG_LEVEL", "error")
	t.Setenv("ATTENDANCE_LOG_FORMAT", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out, io.Discard).Run(append([]string{"attendance"}, args...))
	return out.String(), err
}

func firstField(t *testing.T, output string) string {
	t.Helper()
	fields := strings.Split(strings.TrimSpace(output), "\t")
	if len(fields) == 0 || fields[0] == "" {
		t.Fatalf("expected tab-separated output, got %q", output)
	}
	return fields[0]
}

func TestCommands_EndToEnd(t *testing.T) {
	dir := setupEnv(t)

	if out, err := run(t, "migrate"); err != nil || !strings.Contains(out, "migrations\tok") {
		t.Fatalf("migrate failed: %v (%q)", err, out)
	}

	out, err := run(t, "register-user", "--email", "lead@example.com", "--name", "Lead", "--admin")
	if err != nil {
		t.Fatalf("register-user failed: %v", err)
	}
	adminID := firstField(t, out)

	out, err = run(t, "create-period", "--name", "January", "--start", "2024-01-01", "--end", "2024-01-31", "--as", adminID)
	if err != nil {
		t.Fatalf("create-period failed: %v", err)
	}
	periodID := firstField(t, out)

	sheet := filepath.Join(dir, "attendance.csv")
	csv := "Date,Length,Alice,Bob,Carol\n\"Team Mtg 1/15/2024\",2,,*,1.5\n"
	if err := os.WriteFile(sheet, []byte(csv), 0o600); err != nil {
		t.Fatalf("write sheet: %v", err)
	}

	if _, err := run(t, "import", "--file", sheet); err == nil {
		t.Fatalf("expected import without --as to be rejected")
	}

	metrics := filepath.Join(dir, "metrics.prom")
	out, err = run(t, "--metrics-file", metrics, "import", "--file", sheet, "--kind", "attendance", "--as", adminID)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	for _, want := range []string{"rows\t1", "meetings_created\t1", "records_created\t1", "excuses_created\t1", "users_created\t3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in import output:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), "attendance_engine_importer_rows_total") {
		t.Fatalf("expected importer counter in textfile:\n%s", data)
	}

	out, err = run(t, "import", "--file", sheet, "--as", adminID)
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if !strings.Contains(out, "records_updated\t1") || !strings.Contains(out, "diagnostic\t0\t-1") {
		t.Fatalf("expected idempotent re-import with a duplicate warning:\n%s", out)
	}

	out, err = run(t, "report", "--period", periodID)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(out, "Carol\t75.0\t1.50\t2.00") {
		t.Fatalf("unexpected report:\n%s", out)
	}

	out, err = run(t, "repair-times", "--as", adminID)
	if err != nil {
		t.Fatalf("repair-times failed: %v", err)
	}
	if !strings.Contains(out, "candidates\t0") {
		t.Fatalf("unexpected repair output:\n%s", out)
	}
}

func TestImport_RejectsUnknownKind(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "import", "--file", "missing.csv", "--kind", "roster")
	if err == nil || !strings.Contains(err.Error(), "kind") {
		t.Fatalf("expected kind error, got %v", err)
	}
}

func TestServe_ShutsDownWhenContextEnds(t *testing.T) {
	setupEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := newApp(io.Discard, io.Discard).RunContext(ctx, []string{"attendance", "serve", "--addr", "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
