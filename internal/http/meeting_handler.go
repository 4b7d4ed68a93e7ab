package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/logging"
)

type catalogService interface {
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, error)
	GetMeeting(ctx context.Context, id string) (application.Meeting, error)
	MeetingsInPeriod(ctx context.Context, periodID string) ([]application.Meeting, error)
	FindOverlapping(ctx context.Context, date interval.Date, span interval.Interval, meetingType application.MeetingType) ([]application.Meeting, error)
	DeleteMeeting(ctx context.Context, principal application.Principal, meetingID string) error
	UpcomingMeetings(ctx context.Context, days int) ([]application.Meeting, error)
	MeetingAttendance(ctx context.Context, meetingID string) ([]application.AttendanceEntry, error)
}

// MeetingHandler serves the meeting catalog.
type MeetingHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service catalogService, logger *slog.Logger) *MeetingHandler {
	base := logging.OrDefault(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req meetingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	meeting, err := h.service.CreateMeeting(r.Context(), application.CreateMeetingParams{
		Principal:   principal,
		Start:       req.Start,
		End:         req.End,
		Type:        application.MeetingType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", meeting.ID).InfoContext(r.Context(), "meeting created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingResourceID)
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), meetingID)
	if err != nil {
		h.log(r.Context(), "Get", "meeting_id", meetingID).WarnContext(r.Context(), "meeting lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

// List selects meetings by period, by upcoming window or by a time range on
// a date, depending on which query parameters are present.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	logger := h.log(r.Context(), "List", "query", r.URL.RawQuery)

	var (
		meetings []application.Meeting
		err      error
	)
	switch {
	case query.Has("period"):
		meetings, err = h.service.MeetingsInPeriod(r.Context(), query.Get("period"))
	case query.Has("upcoming_days"):
		days, convErr := strconv.Atoi(query.Get("upcoming_days"))
		if convErr != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("upcoming_days must be an integer"))
			return
		}
		meetings, err = h.service.UpcomingMeetings(r.Context(), days)
	case query.Has("date"):
		var q rangeQuery
		q, err = parseRangeQuery(query.Get("date"), query.Get("start"), query.Get("end"))
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		meetings, err = h.service.FindOverlapping(r.Context(), q.date, q.span, application.MeetingType(query.Get("type")))
	default:
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("one of period, upcoming_days or date is required"))
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := meetingListResponse{Meetings: make([]meetingDTO, 0, len(meetings))}
	for _, m := range meetings {
		resp.Meetings = append(resp.Meetings, toMeetingDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "meeting_id", meetingID)

	if err := h.service.DeleteMeeting(r.Context(), principal, meetingID); err != nil {
		logger.ErrorContext(r.Context(), "meeting deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Attendance returns the roster of one meeting.
func (h *MeetingHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingResourceID)
		return
	}

	entries, err := h.service.MeetingAttendance(r.Context(), meetingID)
	if err != nil {
		h.log(r.Context(), "Attendance", "meeting_id", meetingID).ErrorContext(r.Context(), "roster lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := rosterResponse{Entries: make([]rosterEntryDTO, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, rosterEntryDTO{
			UserID:      e.User.ID,
			DisplayName: e.User.DisplayName,
			Start:       e.Span.Start,
			End:         e.Span.End,
			Hours:       e.Hours,
			IsPartial:   e.Record.IsPartial,
			Notes:       e.Record.Notes,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type rangeQuery struct {
	date interval.Date
	span interval.Interval
}

// parseRangeQuery reads a YYYY-MM-DD date plus RFC 3339 bounds. The span is
// not validated here so the services report reversed ranges themselves.
func parseRangeQuery(date, start, end string) (rangeQuery, error) {
	d, err := interval.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return rangeQuery{}, errors.New("date must be formatted as YYYY-MM-DD")
	}
	from, err := time.Parse(time.RFC3339, strings.TrimSpace(start))
	if err != nil {
		return rangeQuery{}, errors.New("start must be an RFC 3339 timestamp")
	}
	to, err := time.Parse(time.RFC3339, strings.TrimSpace(end))
	if err != nil {
		return rangeQuery{}, errors.New("end must be an RFC 3339 timestamp")
	}
	return rangeQuery{date: d, span: interval.Interval{Start: from, End: to}}, nil
}

type meetingRequest struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
}

type meetingDTO struct {
	ID          string    `json:"id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Hours       float64   `json:"hours"`
	CreatorID   string    `json:"creator_id,omitempty"`
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type meetingListResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type rosterEntryDTO struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Hours       float64   `json:"hours"`
	IsPartial   bool      `json:"is_partial"`
	Notes       string    `json:"notes,omitempty"`
}

type rosterResponse struct {
	Entries []rosterEntryDTO `json:"entries"`
}

func toMeetingDTO(m application.Meeting) meetingDTO {
	return meetingDTO{
		ID:          m.ID,
		Start:       m.Start,
		End:         m.End,
		Type:        string(m.Type),
		Description: m.Description,
		Hours:       m.Hours(),
		CreatorID:   m.CreatorID,
	}
}
