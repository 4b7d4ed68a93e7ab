// Package memory provides an in-process persistence.Store. Each write
// transaction works on a copy of the data which replaces the live state only
// when the transaction function succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

// Storage is an in-memory persistence.Store implementation.
type Storage struct {
	mu    sync.RWMutex
	state *state
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{state: newState()}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// WithinTx runs fn against a snapshot and publishes it when fn succeeds.
func (s *Storage) WithinTx(ctx context.Context, fn persistence.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, working); err != nil {
		return err
	}
	s.state = working
	return nil
}

// ReadTx runs fn against a snapshot that is discarded afterwards.
func (s *Storage) ReadTx(ctx context.Context, fn persistence.TxFunc) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(ctx, snapshot)
}

type state struct {
	users    map[string]persistence.User
	meetings map[string]persistence.Meeting
	records  map[string]persistence.AttendanceRecord
	excuses  map[string]persistence.Excuse
	requests map[string]persistence.ExcuseRequest
	periods  map[string]persistence.ReportingPeriod
	batches  map[string]persistence.ImportBatch
}

func newState() *state {
	return &state{
		users:    make(map[string]persistence.User),
		meetings: make(map[string]persistence.Meeting),
		records:  make(map[string]persistence.AttendanceRecord),
		excuses:  make(map[string]persistence.Excuse),
		requests: make(map[string]persistence.ExcuseRequest),
		periods:  make(map[string]persistence.ReportingPeriod),
		batches:  make(map[string]persistence.ImportBatch),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.meetings {
		out.meetings[k] = v
	}
	for k, v := range s.records {
		out.records[k] = cloneRecord(v)
	}
	for k, v := range s.excuses {
		out.excuses[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = cloneRequest(v)
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	for k, v := range s.batches {
		out.batches[k] = v
	}
	return out
}

func (s *state) Users() persistence.UserRepository                   { return s }
func (s *state) Meetings() persistence.MeetingRepository             { return s }
func (s *state) Attendance() persistence.AttendanceRepository        { return s }
func (s *state) Excuses() persistence.ExcuseRepository               { return s }
func (s *state) ExcuseRequests() persistence.ExcuseRequestRepository { return s }
func (s *state) Periods() persistence.PeriodRepository               { return s }
func (s *state) Imports() persistence.ImportBatchRepository          { return s }

// --- UserRepository implementation ---

func (s *state) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	if err := s.ensureUniqueUserLocked(user); err != nil {
		return err
	}
	s.users[user.ID] = user
	return nil
}

func (s *state) UpdateUser(ctx context.Context, user persistence.User) error {
	existing, ok := s.users[user.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueUserLocked(user); err != nil {
		return err
	}
	user.CreatedAt = existing.CreatedAt
	s.users[user.ID] = user
	return nil
}

func (s *state) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *state) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *state) GetUserByName(ctx context.Context, name string) (persistence.User, error) {
	for _, user := range s.users {
		if user.DisplayName == name {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by CreatedAt ascending.
func (s *state) ListUsers(ctx context.Context) ([]persistence.User, error) {
	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *state) DeleteUser(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	for key, record := range s.records {
		if record.UserID == id {
			delete(s.records, key)
		}
	}
	for key, excuse := range s.excuses {
		if excuse.UserID == id {
			delete(s.excuses, key)
		}
	}
	for key, request := range s.requests {
		if request.UserID == id {
			delete(s.requests, key)
		}
	}
	return nil
}

func (s *state) ensureUniqueUserLocked(user persistence.User) error {
	for id, existing := range s.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("memory: email %s: %w", user.Email, persistence.ErrDuplicate)
		}
		if existing.DisplayName == user.DisplayName {
			return fmt.Errorf("memory: display name %s: %w", user.DisplayName, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- MeetingRepository implementation ---

func (s *state) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" || meeting.End.Before(meeting.Start) {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.meetings[meeting.ID]; ok {
		return fmt.Errorf("memory: meeting %s: %w", meeting.ID, persistence.ErrDuplicate)
	}
	s.meetings[meeting.ID] = meeting
	return nil
}

func (s *state) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	meeting, ok := s.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	return meeting, nil
}

func (s *state) FindMeetingByStart(ctx context.Context, start time.Time, meetingType persistence.MeetingType) (persistence.Meeting, error) {
	matches, _ := s.ListMeetings(ctx, persistence.MeetingFilter{Type: meetingType})
	for _, meeting := range matches {
		if meeting.Start.Equal(start) {
			return meeting, nil
		}
	}
	return persistence.Meeting{}, persistence.ErrNotFound
}

func (s *state) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	meetings := make([]persistence.Meeting, 0)
	for _, meeting := range s.meetings {
		if filter.Type != "" && meeting.Type != filter.Type {
			continue
		}
		if filter.StartsFrom != nil && meeting.Start.Before(*filter.StartsFrom) {
			continue
		}
		if filter.StartsBefore != nil && !meeting.Start.Before(*filter.StartsBefore) {
			continue
		}
		meetings = append(meetings, meeting)
	}
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].Start.Equal(meetings[j].Start) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].Start.Before(meetings[j].Start)
	})
	return meetings, nil
}

func (s *state) DeleteMeeting(ctx context.Context, id string) error {
	if _, ok := s.meetings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.meetings, id)
	for key, record := range s.records {
		if record.MeetingID == id {
			delete(s.records, key)
		}
	}
	for key, excuse := range s.excuses {
		if excuse.MeetingID == id {
			delete(s.excuses, key)
		}
	}
	for key, request := range s.requests {
		if request.MeetingID == id {
			delete(s.requests, key)
		}
	}
	return nil
}

// --- AttendanceRepository implementation ---

func (s *state) CreateRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	if _, ok := s.users[record.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", record.UserID, persistence.ErrForeignKeyViolation)
	}
	if _, ok := s.meetings[record.MeetingID]; !ok {
		return fmt.Errorf("memory: meeting %s: %w", record.MeetingID, persistence.ErrForeignKeyViolation)
	}
	for _, existing := range s.records {
		if existing.UserID == record.UserID && existing.MeetingID == record.MeetingID {
			return fmt.Errorf("memory: attendance for %s/%s: %w", record.UserID, record.MeetingID, persistence.ErrDuplicate)
		}
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

func (s *state) UpdateRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	existing, ok := s.records[record.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	record.UserID = existing.UserID
	record.MeetingID = existing.MeetingID
	record.CreatedAt = existing.CreatedAt
	s.records[record.ID] = cloneRecord(record)
	return nil
}

func (s *state) GetRecord(ctx context.Context, userID, meetingID string) (persistence.AttendanceRecord, error) {
	for _, record := range s.records {
		if record.UserID == userID && record.MeetingID == meetingID {
			return cloneRecord(record), nil
		}
	}
	return persistence.AttendanceRecord{}, persistence.ErrNotFound
}

func (s *state) ListRecords(ctx context.Context, filter persistence.AttendanceFilter) ([]persistence.AttendanceRecord, error) {
	meetingSet := toSet(filter.MeetingIDs)
	records := make([]persistence.AttendanceRecord, 0)
	for _, record := range s.records {
		if filter.UserID != "" && record.UserID != filter.UserID {
			continue
		}
		if filter.MeetingIDs != nil {
			if _, ok := meetingSet[record.MeetingID]; !ok {
				continue
			}
		}
		if filter.WithInterval && !record.HasInterval() {
			continue
		}
		records = append(records, cloneRecord(record))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// --- ExcuseRepository implementation ---

func (s *state) CreateExcuse(ctx context.Context, excuse persistence.Excuse) error {
	if _, ok := s.users[excuse.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", excuse.UserID, persistence.ErrForeignKeyViolation)
	}
	if _, ok := s.meetings[excuse.MeetingID]; !ok {
		return fmt.Errorf("memory: meeting %s: %w", excuse.MeetingID, persistence.ErrForeignKeyViolation)
	}
	for _, existing := range s.excuses {
		if existing.UserID == excuse.UserID && existing.MeetingID == excuse.MeetingID {
			return fmt.Errorf("memory: excuse for %s/%s: %w", excuse.UserID, excuse.MeetingID, persistence.ErrDuplicate)
		}
	}
	s.excuses[excuse.ID] = excuse
	return nil
}

func (s *state) GetExcuse(ctx context.Context, userID, meetingID string) (persistence.Excuse, error) {
	for _, excuse := range s.excuses {
		if excuse.UserID == userID && excuse.MeetingID == meetingID {
			return excuse, nil
		}
	}
	return persistence.Excuse{}, persistence.ErrNotFound
}

func (s *state) ListExcuses(ctx context.Context, filter persistence.ExcuseFilter) ([]persistence.Excuse, error) {
	meetingSet := toSet(filter.MeetingIDs)
	excuses := make([]persistence.Excuse, 0)
	for _, excuse := range s.excuses {
		if filter.UserID != "" && excuse.UserID != filter.UserID {
			continue
		}
		if filter.MeetingIDs != nil {
			if _, ok := meetingSet[excuse.MeetingID]; !ok {
				continue
			}
		}
		excuses = append(excuses, excuse)
	}
	sort.Slice(excuses, func(i, j int) bool {
		if excuses[i].CreatedAt.Equal(excuses[j].CreatedAt) {
			return excuses[i].ID < excuses[j].ID
		}
		return excuses[i].CreatedAt.Before(excuses[j].CreatedAt)
	})
	return excuses, nil
}

// --- ExcuseRequestRepository implementation ---

func (s *state) CreateRequest(ctx context.Context, request persistence.ExcuseRequest) error {
	if _, ok := s.users[request.UserID]; !ok {
		return fmt.Errorf("memory: user %s: %w", request.UserID, persistence.ErrForeignKeyViolation)
	}
	if _, ok := s.meetings[request.MeetingID]; !ok {
		return fmt.Errorf("memory: meeting %s: %w", request.MeetingID, persistence.ErrForeignKeyViolation)
	}
	if _, ok := s.requests[request.ID]; ok {
		return fmt.Errorf("memory: excuse request %s: %w", request.ID, persistence.ErrDuplicate)
	}
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

func (s *state) UpdateRequest(ctx context.Context, request persistence.ExcuseRequest) error {
	existing, ok := s.requests[request.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	request.UserID = existing.UserID
	request.MeetingID = existing.MeetingID
	request.RequestedAt = existing.RequestedAt
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

func (s *state) GetRequest(ctx context.Context, id string) (persistence.ExcuseRequest, error) {
	request, ok := s.requests[id]
	if !ok {
		return persistence.ExcuseRequest{}, persistence.ErrNotFound
	}
	return cloneRequest(request), nil
}

func (s *state) FindPending(ctx context.Context, userID, meetingID string) (persistence.ExcuseRequest, error) {
	for _, request := range s.requests {
		if request.UserID == userID && request.MeetingID == meetingID && request.Status == persistence.ExcuseStatusPending {
			return cloneRequest(request), nil
		}
	}
	return persistence.ExcuseRequest{}, persistence.ErrNotFound
}

func (s *state) ListRequests(ctx context.Context, filter persistence.ExcuseRequestFilter) ([]persistence.ExcuseRequest, error) {
	requests := make([]persistence.ExcuseRequest, 0)
	for _, request := range s.requests {
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		if filter.NotStatus != "" && request.Status == filter.NotStatus {
			continue
		}
		requests = append(requests, cloneRequest(request))
	}
	sort.Slice(requests, func(i, j int) bool {
		ti, tj := sortKey(requests[i]), sortKey(requests[j])
		if ti.Equal(tj) {
			return requests[i].ID < requests[j].ID
		}
		return ti.After(tj)
	})
	if filter.Limit > 0 && len(requests) > filter.Limit {
		requests = requests[:filter.Limit]
	}
	return requests, nil
}

func sortKey(request persistence.ExcuseRequest) time.Time {
	if request.ReviewedAt != nil {
		return *request.ReviewedAt
	}
	return request.RequestedAt
}

// --- PeriodRepository implementation ---

func (s *state) CreatePeriod(ctx context.Context, period persistence.ReportingPeriod) error {
	if _, ok := s.periods[period.ID]; ok {
		return fmt.Errorf("memory: period %s: %w", period.ID, persistence.ErrDuplicate)
	}
	s.periods[period.ID] = period
	return nil
}

func (s *state) GetPeriod(ctx context.Context, id string) (persistence.ReportingPeriod, error) {
	period, ok := s.periods[id]
	if !ok {
		return persistence.ReportingPeriod{}, persistence.ErrNotFound
	}
	return period, nil
}

func (s *state) ListPeriods(ctx context.Context) ([]persistence.ReportingPeriod, error) {
	periods := make([]persistence.ReportingPeriod, 0, len(s.periods))
	for _, period := range s.periods {
		periods = append(periods, period)
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].StartDate == periods[j].StartDate {
			return periods[i].ID < periods[j].ID
		}
		return periods[i].StartDate.After(periods[j].StartDate)
	})
	return periods, nil
}

// --- ImportBatchRepository implementation ---

func (s *state) CreateBatch(ctx context.Context, batch persistence.ImportBatch) error {
	if _, ok := s.batches[batch.ID]; ok {
		return fmt.Errorf("memory: import batch %s: %w", batch.ID, persistence.ErrDuplicate)
	}
	s.batches[batch.ID] = batch
	return nil
}

func (s *state) FindBatchByChecksum(ctx context.Context, checksum string) (persistence.ImportBatch, error) {
	var found *persistence.ImportBatch
	for _, batch := range s.batches {
		if batch.Checksum != checksum {
			continue
		}
		if found == nil || batch.CreatedAt.Before(found.CreatedAt) {
			b := batch
			found = &b
		}
	}
	if found == nil {
		return persistence.ImportBatch{}, persistence.ErrNotFound
	}
	return *found, nil
}

// --- Helpers ---

func cloneRecord(record persistence.AttendanceRecord) persistence.AttendanceRecord {
	out := record
	if record.AttendedStart != nil {
		start := *record.AttendedStart
		out.AttendedStart = &start
	}
	if record.AttendedEnd != nil {
		end := *record.AttendedEnd
		out.AttendedEnd = &end
	}
	if record.AttendedHours != nil {
		hours := *record.AttendedHours
		out.AttendedHours = &hours
	}
	return out
}

func cloneRequest(request persistence.ExcuseRequest) persistence.ExcuseRequest {
	out := request
	if request.ReviewedAt != nil {
		reviewed := *request.ReviewedAt
		out.ReviewedAt = &reviewed
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}
