package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/attendance-engine/internal/persistence"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"name": "required", "end": "invalid"}}
	if got := withFields.Error(); got != "validation failed: end, name" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_Add(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("first", "replaced")
	if got := base.FieldErrors["first"]; got != "replaced" {
		t.Fatalf("expected add to overwrite the field, got %q", got)
	}
	if !base.HasErrors() {
		t.Fatalf("expected HasErrors after add")
	}
}

func TestPersistenceError(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("insert: %w", persistence.ErrConstraintViolation)
	err := error(&PersistenceError{Op: "create meeting", Err: cause})

	if !errors.Is(err, ErrPersistenceFailure) {
		t.Fatalf("expected ErrPersistenceFailure match")
	}
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected unwrap to reach the storage sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected ErrNotFound match")
	}
	if got := err.Error(); got != "application: create meeting: insert: persistence: constraint violation" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrNotPendingAliasesAlreadyReviewed(t *testing.T) {
	t.Parallel()

	if !errors.Is(ErrNotPending, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrNotPending to match ErrAlreadyReviewed")
	}
}
