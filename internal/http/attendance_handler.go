package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/logging"
)

type ledgerService interface {
	LogByIdentifier(ctx context.Context, params application.LogByIdentifierParams) (application.AttendanceRecord, error)
	LogByTimeRange(ctx context.Context, params application.LogByTimeRangeParams) (application.LogResult, error)
	EditByTimeRange(ctx context.Context, params application.EditByTimeRangeParams) (application.LogResult, error)
	RepairEqualTimeEntries(ctx context.Context, principal application.Principal, apply bool) ([]application.RepairCandidate, error)
}

// AttendanceHandler serves the attendance ledger for the acting user.
type AttendanceHandler struct {
	service   ledgerService
	responder responder
	logger    *slog.Logger
}

func NewAttendanceHandler(service ledgerService, logger *slog.Logger) *AttendanceHandler {
	base := logging.OrDefault(logger)
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

// Log records attendance. A meeting_id logs the whole meeting; otherwise the
// date and time range select the best matching meeting.
func (h *AttendanceHandler) Log(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req attendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Log", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode attendance request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Log")

	if id := strings.TrimSpace(req.MeetingID); id != "" {
		record, err := h.service.LogByIdentifier(r.Context(), application.LogByIdentifierParams{
			Principal: principal,
			MeetingID: id,
			Note:      req.Note,
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "attendance logging failed", "meeting_id", id, "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusCreated, attendanceResponse{Record: toRecordDTO(record)})
		return
	}

	q, err := parseRangeQuery(req.Date, req.Start, req.End)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	result, err := h.service.LogByTimeRange(r.Context(), application.LogByTimeRangeParams{
		Principal: principal,
		Date:      q.date,
		Range:     q.span,
		Type:      application.MeetingType(req.Type),
		Note:      req.Note,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance logging failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", result.Meeting.ID, "hours", result.Hours).InfoContext(r.Context(), "attendance logged")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toLogResponse(result))
}

// Edit replaces the attended interval of an existing record.
func (h *AttendanceHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req attendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	q, err := parseRangeQuery(req.Date, req.Start, req.End)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Edit")

	result, err := h.service.EditByTimeRange(r.Context(), application.EditByTimeRangeParams{
		Principal: principal,
		Date:      q.date,
		Range:     q.span,
		Note:      req.Note,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance edit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", result.Meeting.ID, "hours", result.Hours).InfoContext(r.Context(), "attendance edited")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLogResponse(result))
}

// Repair lists, or with apply=true fixes, records whose interval spans a
// whole day.
func (h *AttendanceHandler) Repair(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	apply := false
	if raw := r.URL.Query().Get("apply"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		apply = parsed
	}

	candidates, err := h.service.RepairEqualTimeEntries(r.Context(), principal, apply)
	if err != nil {
		h.log(r.Context(), "Repair").ErrorContext(r.Context(), "repair failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := repairResponse{Candidates: make([]repairCandidateDTO, 0, len(candidates))}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, repairCandidateDTO{
			Record:  toRecordDTO(c.Record),
			Hours:   c.Hours,
			Applied: c.Applied,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type attendanceRequest struct {
	MeetingID string `json:"meeting_id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Type      string `json:"type"`
	Note      string `json:"note"`
}

type recordDTO struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	MeetingID     string     `json:"meeting_id"`
	AttendedStart *time.Time `json:"attended_start,omitempty"`
	AttendedEnd   *time.Time `json:"attended_end,omitempty"`
	AttendedHours *float64   `json:"attended_hours,omitempty"`
	IsPartial     bool       `json:"is_partial"`
	Notes         string     `json:"notes,omitempty"`
}

type attendanceResponse struct {
	Record recordDTO `json:"record"`
}

type logResponse struct {
	Record   recordDTO  `json:"record"`
	Meeting  meetingDTO `json:"meeting"`
	Hours    float64    `json:"hours"`
	Partial  bool       `json:"partial"`
	Extended bool       `json:"extended"`
}

type repairCandidateDTO struct {
	Record  recordDTO `json:"record"`
	Hours   float64   `json:"hours"`
	Applied bool      `json:"applied"`
}

type repairResponse struct {
	Candidates []repairCandidateDTO `json:"candidates"`
}

func toRecordDTO(r application.AttendanceRecord) recordDTO {
	return recordDTO{
		ID:            r.ID,
		UserID:        r.UserID,
		MeetingID:     r.MeetingID,
		AttendedStart: r.AttendedStart,
		AttendedEnd:   r.AttendedEnd,
		AttendedHours: r.AttendedHours,
		IsPartial:     r.IsPartial,
		Notes:         r.Notes,
	}
}

func toLogResponse(result application.LogResult) logResponse {
	return logResponse{
		Record:   toRecordDTO(result.Record),
		Meeting:  toMeetingDTO(result.Meeting),
		Hours:    result.Hours,
		Partial:  result.Partial,
		Extended: result.Extended,
	}
}
