package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/interval"
	"github.com/example/attendance-engine/internal/logging"
)

type periodService interface {
	CreatePeriod(ctx context.Context, params application.CreatePeriodParams) (application.ReportingPeriod, error)
	GetPeriod(ctx context.Context, id string) (application.ReportingPeriod, error)
	ListPeriods(ctx context.Context) ([]application.ReportingPeriod, error)
	ActivePeriod(ctx context.Context) (application.ReportingPeriod, error)
}

// PeriodHandler serves reporting periods.
type PeriodHandler struct {
	service   periodService
	responder responder
	logger    *slog.Logger
}

func NewPeriodHandler(service periodService, logger *slog.Logger) *PeriodHandler {
	base := logging.OrDefault(logger)
	return &PeriodHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PeriodHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PeriodHandler", operation, attrs...)
}

func (h *PeriodHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	params := application.CreatePeriodParams{Principal: principal, Name: req.Name}
	fields := map[string]string{}
	var err error
	if params.StartDate, err = interval.ParseDate(strings.TrimSpace(req.StartDate)); err != nil {
		fields["start_date"] = "start_date must be formatted as YYYY-MM-DD"
	}
	if params.EndDate, err = interval.ParseDate(strings.TrimSpace(req.EndDate)); err != nil {
		fields["end_date"] = "end_date must be formatted as YYYY-MM-DD"
	}
	if len(fields) > 0 {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{FieldErrors: fields})
		return
	}

	logger := h.log(r.Context(), "Create")

	period, err := h.service.CreatePeriod(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "period creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("period_id", period.ID).InfoContext(r.Context(), "period created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, periodResponse{Period: toPeriodDTO(period)})
}

// Get returns one period; the id "active" selects the period containing today.
func (h *PeriodHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	periodID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(periodID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingResourceID)
		return
	}

	var (
		period application.ReportingPeriod
		err    error
	)
	if periodID == "active" {
		period, err = h.service.ActivePeriod(r.Context())
	} else {
		period, err = h.service.GetPeriod(r.Context(), periodID)
	}
	if err != nil {
		h.log(r.Context(), "Get", "period_id", periodID).WarnContext(r.Context(), "period lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, periodResponse{Period: toPeriodDTO(period)})
}

func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	periods, err := h.service.ListPeriods(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "period listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := periodListResponse{Periods: make([]periodDTO, 0, len(periods))}
	for _, p := range periods {
		resp.Periods = append(resp.Periods, toPeriodDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type periodRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type periodDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type periodResponse struct {
	Period periodDTO `json:"period"`
}

type periodListResponse struct {
	Periods []periodDTO `json:"periods"`
}

func toPeriodDTO(p application.ReportingPeriod) periodDTO {
	return periodDTO{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: p.StartDate.String(),
		EndDate:   p.EndDate.String(),
	}
}
