package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// DeleteUser removes the user together with their records, excuses and requests.
	DeleteUser(ctx context.Context, id string) error
}

// MeetingFilter narrows meeting queries. Bounds apply to the start instant:
// StartsFrom is inclusive, StartsBefore exclusive.
type MeetingFilter struct {
	StartsFrom   *time.Time
	StartsBefore *time.Time
	Type         MeetingType
}

// MeetingRepository stores the event catalog.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	FindMeetingByStart(ctx context.Context, start time.Time, meetingType MeetingType) (Meeting, error)
	// ListMeetings returns meetings ordered by start then ID.
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	// DeleteMeeting removes the meeting and every record, excuse and request referencing it.
	DeleteMeeting(ctx context.Context, id string) error
}

// AttendanceFilter narrows attendance record queries. Empty fields match everything.
type AttendanceFilter struct {
	UserID       string
	MeetingIDs   []string
	WithInterval bool
}

// AttendanceRepository stores the attendance ledger.
type AttendanceRepository interface {
	// CreateRecord fails with ErrDuplicate when the (user, meeting) pair already has a record.
	CreateRecord(ctx context.Context, record AttendanceRecord) error
	UpdateRecord(ctx context.Context, record AttendanceRecord) error
	GetRecord(ctx context.Context, userID, meetingID string) (AttendanceRecord, error)
	ListRecords(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
}

// ExcuseFilter narrows excuse queries.
type ExcuseFilter struct {
	UserID     string
	MeetingIDs []string
}

// ExcuseRepository stores approved absences.
type ExcuseRepository interface {
	// CreateExcuse fails with ErrDuplicate when the (user, meeting) pair is already excused.
	CreateExcuse(ctx context.Context, excuse Excuse) error
	GetExcuse(ctx context.Context, userID, meetingID string) (Excuse, error)
	ListExcuses(ctx context.Context, filter ExcuseFilter) ([]Excuse, error)
}

// ExcuseRequestFilter narrows excuse request queries. Limit <= 0 means no limit.
type ExcuseRequestFilter struct {
	Status    ExcuseStatus
	NotStatus ExcuseStatus
	Limit     int
}

// ExcuseRequestRepository stores excuse requests and their review state.
type ExcuseRequestRepository interface {
	CreateRequest(ctx context.Context, request ExcuseRequest) error
	UpdateRequest(ctx context.Context, request ExcuseRequest) error
	GetRequest(ctx context.Context, id string) (ExcuseRequest, error)
	FindPending(ctx context.Context, userID, meetingID string) (ExcuseRequest, error)
	// ListRequests orders pending requests by RequestedAt and reviewed ones by ReviewedAt, newest first.
	ListRequests(ctx context.Context, filter ExcuseRequestFilter) ([]ExcuseRequest, error)
}

// PeriodRepository stores reporting periods.
type PeriodRepository interface {
	CreatePeriod(ctx context.Context, period ReportingPeriod) error
	GetPeriod(ctx context.Context, id string) (ReportingPeriod, error)
	// ListPeriods returns periods ordered by start date, newest first.
	ListPeriods(ctx context.Context) ([]ReportingPeriod, error)
}

// ImportBatchRepository stores the bulk import audit trail.
type ImportBatchRepository interface {
	CreateBatch(ctx context.Context, batch ImportBatch) error
	FindBatchByChecksum(ctx context.Context, checksum string) (ImportBatch, error)
}

// Tx groups the repositories bound to one transaction.
type Tx interface {
	Users() UserRepository
	Meetings() MeetingRepository
	Attendance() AttendanceRepository
	Excuses() ExcuseRepository
	ExcuseRequests() ExcuseRequestRepository
	Periods() PeriodRepository
	Imports() ImportBatchRepository
}

// TxFunc is executed inside a transaction. Returning an error rolls it back.
type TxFunc func(ctx context.Context, tx Tx) error

// Store opens transactions. WithinTx commits once when fn returns nil and
// rolls back otherwise; ReadTx never commits writes.
type Store interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	ReadTx(ctx context.Context, fn TxFunc) error
	Close() error
}
