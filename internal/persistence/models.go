package persistence

import (
	"time"

	"github.com/example/attendance-engine/internal/interval"
)

// MeetingType distinguishes regular meetings from outreach events.
type MeetingType string

const (
	// MeetingTypeRegular is a core meeting; excusable and percentage based.
	MeetingTypeRegular MeetingType = "regular"
	// MeetingTypeOutreach is a volunteer event; never excusable and hour based.
	MeetingTypeOutreach MeetingType = "outreach"
)

// Valid reports whether t is a known meeting type.
func (t MeetingType) Valid() bool {
	return t == MeetingTypeRegular || t == MeetingTypeOutreach
}

// ExcuseStatus is the review state of an excuse request.
type ExcuseStatus string

const (
	ExcuseStatusPending  ExcuseStatus = "pending"
	ExcuseStatusApproved ExcuseStatus = "approved"
	ExcuseStatusDenied   ExcuseStatus = "denied"
)

// User mirrors a member of the external identity system.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Meeting is a regular meeting or outreach event in the catalog.
type Meeting struct {
	ID          string
	Start       time.Time
	End         time.Time
	Type        MeetingType
	Description string
	CreatorID   string
	CreatedAt   time.Time
}

// Interval returns the meeting span.
func (m Meeting) Interval() interval.Interval {
	return interval.Interval{Start: m.Start, End: m.End}
}

// Hours returns the nominal meeting length.
func (m Meeting) Hours() float64 {
	return m.Interval().Hours()
}

// AttendanceRecord is one user's attendance at one meeting.
type AttendanceRecord struct {
	ID            string
	UserID        string
	MeetingID     string
	AttendedStart *time.Time
	AttendedEnd   *time.Time
	AttendedHours *float64
	IsPartial     bool
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasInterval reports whether the record carries an explicit attended span.
func (r AttendanceRecord) HasInterval() bool {
	return r.AttendedStart != nil && r.AttendedEnd != nil
}

// ReportingPeriod is a named range of calendar dates, both ends inclusive.
type ReportingPeriod struct {
	ID        string
	Name      string
	StartDate interval.Date
	EndDate   interval.Date
	CreatorID string
	CreatedAt time.Time
}

// ExcuseRequest is a member's request to be excused from a regular meeting.
type ExcuseRequest struct {
	ID          string
	UserID      string
	MeetingID   string
	Reason      string
	Status      ExcuseStatus
	RequestedAt time.Time
	ReviewerID  string
	ReviewedAt  *time.Time
	AdminNote   string
}

// Excuse is an approved absence from a regular meeting.
type Excuse struct {
	ID                string
	UserID            string
	MeetingID         string
	ReportingPeriodID string
	Reason            string
	CreatorID         string
	ExcuseRequestID   string
	CreatedAt         time.Time
}

// ImportBatch records one bulk spreadsheet import.
type ImportBatch struct {
	ID              string
	Kind            string
	Checksum        string
	MeetingsCreated int
	RecordsCreated  int
	RecordsUpdated  int
	ExcusesCreated  int
	UsersCreated    int
	Diagnostics     int
	CreatorID       string
	CreatedAt       time.Time
}
