package application

import (
	"time"

	"github.com/example/attendance-engine/internal/compliance"
	"github.com/example/attendance-engine/internal/importer"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/persistence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// RequireAdmin is the single capability check for administrative operations.
func RequireAdmin(principal Principal) error {
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	return nil
}

type (
	// User is a mirrored member of the identity system.
	User = persistence.User
	// Meeting is a regular meeting or outreach event.
	Meeting = persistence.Meeting
	// MeetingType distinguishes regular meetings from outreach events.
	MeetingType = persistence.MeetingType
	// AttendanceRecord is one user's attendance at one meeting.
	AttendanceRecord = persistence.AttendanceRecord
	// ReportingPeriod is a named range of calendar dates.
	ReportingPeriod = persistence.ReportingPeriod
	// ExcuseRequest is a pending or reviewed request for an excuse.
	ExcuseRequest = persistence.ExcuseRequest
	// Excuse is an approved absence.
	Excuse = persistence.Excuse
	// Metrics is the compliance result for one user and period.
	Metrics = compliance.Metrics
)

// CreateMeetingParams wraps the data required to create a meeting.
type CreateMeetingParams struct {
	Principal   Principal
	Start       time.Time
	End         time.Time
	Type        MeetingType
	Description string
}

// AttendanceEntry is one row of a meeting roster.
type AttendanceEntry struct {
	Record AttendanceRecord
	User   User
	// Span is the effective attended interval.
	Span  interval.Interval
	Hours float64
}

// CreatePeriodParams wraps the data required to create a reporting period.
type CreatePeriodParams struct {
	Principal Principal
	Name      string
	StartDate interval.Date
	EndDate   interval.Date
}

// LogByIdentifierParams logs full attendance at a known meeting.
type LogByIdentifierParams struct {
	Principal Principal
	MeetingID string
	Note      string
}

// LogByTimeRangeParams logs attendance for the meeting that best matches a
// time range on a calendar date. An empty Type matches any meeting type.
type LogByTimeRangeParams struct {
	Principal Principal
	Date      interval.Date
	Range     interval.Interval
	Type      MeetingType
	Note      string
}

// EditByTimeRangeParams replaces the attended interval of an existing record.
type EditByTimeRangeParams struct {
	Principal Principal
	Date      interval.Date
	Range     interval.Interval
	Note      string
}

// LogResult describes a written attendance record.
type LogResult struct {
	Record  AttendanceRecord
	Meeting Meeting
	Hours   float64
	// Partial is set when fewer hours than the meeting length were attended.
	Partial bool
	// Extended is set when more hours than the meeting length were attended.
	Extended bool
}

// RepairCandidate is a record whose stored interval spans a full day.
type RepairCandidate struct {
	Record  AttendanceRecord
	Hours   float64
	Applied bool
}

// SubmitExcuseParams wraps a member's excuse request. When MeetingID is
// empty the request targets the only meeting held on Date.
type SubmitExcuseParams struct {
	Principal Principal
	MeetingID string
	Date      interval.Date
	Reason    string
}

// ReviewExcuseParams wraps an approval or denial.
type ReviewExcuseParams struct {
	Principal Principal
	RequestID string
	Note      string
}

// DirectExcuseParams wraps an administrator issued excuse. An empty
// PeriodID selects the period containing the meeting.
type DirectExcuseParams struct {
	Principal Principal
	UserID    string
	MeetingID string
	PeriodID  string
	Reason    string
}

// ImportParams wraps a bulk sheet import.
type ImportParams struct {
	Principal Principal
	Kind      importer.Kind
	Table     [][]string
}

// ImportResult summarises a bulk import. Diagnostics never abort the import.
type ImportResult struct {
	BatchID         string
	Checksum        string
	RowsImported    int
	MeetingsCreated int
	MeetingsReused  int
	RecordsCreated  int
	RecordsUpdated  int
	ExcusesCreated  int
	ExcusesSkipped  int
	UsersCreated    int
	Diagnostics     []importer.RowError
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	IsAdmin     bool
}

// RegisterUserParams wraps the data required to mirror a user.
type RegisterUserParams struct {
	Principal Principal
	Input     UserInput
}

// SetAdminParams toggles a user's administrator flag.
type SetAdminParams struct {
	Principal Principal
	UserID    string
	IsAdmin   bool
}
