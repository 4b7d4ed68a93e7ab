package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/logging"
)

type excuseService interface {
	Submit(ctx context.Context, params application.SubmitExcuseParams) (application.ExcuseRequest, error)
	Approve(ctx context.Context, params application.ReviewExcuseParams) (application.Excuse, error)
	Deny(ctx context.Context, params application.ReviewExcuseParams) (application.ExcuseRequest, error)
	ExcuseDirectly(ctx context.Context, params application.DirectExcuseParams) (application.Excuse, error)
	ListPending(ctx context.Context, principal application.Principal) ([]application.ExcuseRequest, error)
	ListRecentlyReviewed(ctx context.Context, principal application.Principal, limit int) ([]application.ExcuseRequest, error)
}

// ExcuseHandler serves excuse requests and their review.
type ExcuseHandler struct {
	service   excuseService
	responder responder
	logger    *slog.Logger
}

func NewExcuseHandler(service excuseService, logger *slog.Logger) *ExcuseHandler {
	base := logging.OrDefault(logger)
	return &ExcuseHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ExcuseHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ExcuseHandler", operation, attrs...)
}

func (h *ExcuseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req excuseRequestBody
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var date interval.Date
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := interval.ParseDate(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("date must be formatted as YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	if req.MeetingID == "" && date.IsZero() {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("meeting_id or date is required"))
		return
	}

	logger := h.log(r.Context(), "Submit", "meeting_id", req.MeetingID, "date", req.Date)

	request, err := h.service.Submit(r.Context(), application.SubmitExcuseParams{
		Principal: principal,
		MeetingID: req.MeetingID,
		Date:      date,
		Reason:    req.Reason,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "excuse submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", request.ID).InfoContext(r.Context(), "excuse submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, excuseRequestResponse{Request: toExcuseRequestDTO(request)})
}

// List returns pending requests, or the most recently reviewed ones when the
// reviewed query parameter carries a limit.
func (h *ExcuseHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var (
		requests []application.ExcuseRequest
		err      error
	)
	if raw := r.URL.Query().Get("reviewed"); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		requests, err = h.service.ListRecentlyReviewed(r.Context(), principal, limit)
	} else {
		requests, err = h.service.ListPending(r.Context(), principal)
	}
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "excuse listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := excuseRequestListResponse{Requests: make([]excuseRequestDTO, 0, len(requests))}
	for _, req := range requests {
		resp.Requests = append(resp.Requests, toExcuseRequestDTO(req))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *ExcuseHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "Approve")
}

func (h *ExcuseHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "Deny")
}

func (h *ExcuseHandler) review(w http.ResponseWriter, r *http.Request, operation string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	requestID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(requestID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req reviewRequestBody
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), operation, "request_id", requestID)
	params := application.ReviewExcuseParams{Principal: principal, RequestID: requestID, Note: req.Note}

	if operation == "Approve" {
		excuse, err := h.service.Approve(r.Context(), params)
		if err != nil {
			logger.ErrorContext(r.Context(), "excuse approval failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		logger.With("excuse_id", excuse.ID).InfoContext(r.Context(), "excuse approved")
		h.responder.writeJSON(r.Context(), w, http.StatusOK, excuseResponse{Excuse: toExcuseDTO(excuse)})
		return
	}

	request, err := h.service.Deny(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "excuse denial failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "excuse denied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, excuseRequestResponse{Request: toExcuseRequestDTO(request)})
}

// Direct records an administrator issued excuse without a request.
func (h *ExcuseHandler) Direct(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req directExcuseBody
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Direct", "user_id", req.UserID, "meeting_id", req.MeetingID)

	excuse, err := h.service.ExcuseDirectly(r.Context(), application.DirectExcuseParams{
		Principal: principal,
		UserID:    req.UserID,
		MeetingID: req.MeetingID,
		PeriodID:  req.PeriodID,
		Reason:    req.Reason,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "direct excuse failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("excuse_id", excuse.ID).InfoContext(r.Context(), "excuse recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, excuseResponse{Excuse: toExcuseDTO(excuse)})
}

type excuseRequestBody struct {
	MeetingID string `json:"meeting_id"`
	Date      string `json:"date"`
	Reason    string `json:"reason"`
}

type reviewRequestBody struct {
	Note string `json:"note"`
}

type directExcuseBody struct {
	UserID    string `json:"user_id"`
	MeetingID string `json:"meeting_id"`
	PeriodID  string `json:"period_id"`
	Reason    string `json:"reason"`
}

type excuseRequestDTO struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	MeetingID   string     `json:"meeting_id"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ReviewerID  string     `json:"reviewer_id,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	AdminNote   string     `json:"admin_note,omitempty"`
}

type excuseDTO struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	MeetingID         string    `json:"meeting_id"`
	ReportingPeriodID string    `json:"reporting_period_id,omitempty"`
	Reason            string    `json:"reason"`
	CreatorID         string    `json:"creator_id"`
	ExcuseRequestID   string    `json:"excuse_request_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type excuseRequestResponse struct {
	Request excuseRequestDTO `json:"request"`
}

type excuseRequestListResponse struct {
	Requests []excuseRequestDTO `json:"requests"`
}

type excuseResponse struct {
	Excuse excuseDTO `json:"excuse"`
}

func toExcuseRequestDTO(r application.ExcuseRequest) excuseRequestDTO {
	return excuseRequestDTO{
		ID:          r.ID,
		UserID:      r.UserID,
		MeetingID:   r.MeetingID,
		Reason:      r.Reason,
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt,
		ReviewerID:  r.ReviewerID,
		ReviewedAt:  r.ReviewedAt,
		AdminNote:   r.AdminNote,
	}
}

func toExcuseDTO(e application.Excuse) excuseDTO {
	return excuseDTO{
		ID:                e.ID,
		UserID:            e.UserID,
		MeetingID:         e.MeetingID,
		ReportingPeriodID: e.ReportingPeriodID,
		Reason:            e.Reason,
		CreatorID:         e.CreatorID,
		ExcuseRequestID:   e.ExcuseRequestID,
		CreatedAt:         e.CreatedAt,
	}
}
