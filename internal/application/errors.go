package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/attendance-engine/internal/interval"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")

	// ErrInvalidInterval is returned when an end bound precedes its start.
	ErrInvalidInterval = interval.ErrInvalidInterval
	// ErrInvalidRange is returned when a logged time range is empty or reversed,
	// or an edited range falls outside the meeting.
	ErrInvalidRange = errors.New("application: invalid time range")

	// ErrMeetingNotFound is returned when the referenced meeting does not exist.
	ErrMeetingNotFound = errors.New("application: meeting not found")
	// ErrNoMatchingMeeting is returned when no meeting overlaps a logged range.
	ErrNoMatchingMeeting = errors.New("application: no matching meeting")
	// ErrAmbiguousMeeting is returned when a date names more than one meeting.
	ErrAmbiguousMeeting = errors.New("application: several meetings on date")
	// ErrNoExistingRecord is returned when an edit targets a meeting the user never logged.
	ErrNoExistingRecord = errors.New("application: no existing attendance record")

	// ErrAlreadyLogged is returned when the user already has a record for the meeting.
	ErrAlreadyLogged = errors.New("application: attendance already logged")
	// ErrDuplicatePending is returned when a pending excuse request already exists.
	ErrDuplicatePending = errors.New("application: excuse request already pending")
	// ErrAlreadyExcused is returned when the user is already excused from the meeting.
	ErrAlreadyExcused = errors.New("application: already excused")
	// ErrAlreadyReviewed is returned when a request has left the pending state.
	ErrAlreadyReviewed = errors.New("application: excuse request already reviewed")
	// ErrNotPending is an alias of ErrAlreadyReviewed.
	ErrNotPending = ErrAlreadyReviewed

	// ErrOutreachNotExcusable is returned when an excuse targets an outreach event.
	ErrOutreachNotExcusable = errors.New("application: outreach events cannot be excused")

	// ErrPersistenceFailure matches every *PersistenceError.
	ErrPersistenceFailure = errors.New("application: persistence failure")
)

// PersistenceError wraps an unexpected storage error. The surrounding
// transaction is rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("application: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the storage error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrPersistenceFailure.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceFailure
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
