package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/logging"
)

type reportService interface {
	ComputeUserMetrics(ctx context.Context, userID, periodID string) (application.Metrics, error)
	ComputePeriodReport(ctx context.Context, periodID string) ([]application.Metrics, error)
}

type activePeriodFinder interface {
	ActivePeriod(ctx context.Context) (application.ReportingPeriod, error)
}

// ReportHandler serves compliance metrics. The period id "active" resolves
// to the period containing today.
type ReportHandler struct {
	service   reportService
	periods   activePeriodFinder
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, periods activePeriodFinder, logger *slog.Logger) *ReportHandler {
	base := logging.OrDefault(logger)
	return &ReportHandler{service: service, periods: periods, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

func (h *ReportHandler) periodID(ctx context.Context) (string, error) {
	id, _ := ResourceIDFromContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errMissingResourceID
	}
	if id != "active" || h.periods == nil {
		return id, nil
	}
	period, err := h.periods.ActivePeriod(ctx)
	if err != nil {
		return "", err
	}
	return period.ID, nil
}

// Period returns the ranked report for every user with attended hours.
func (h *ReportHandler) Period(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	periodID, err := h.periodID(r.Context())
	if err == errMissingResourceID {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	report, err := h.service.ComputePeriodReport(r.Context(), periodID)
	if err != nil {
		h.log(r.Context(), "Period", "period_id", periodID).ErrorContext(r.Context(), "report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := reportResponse{PeriodID: periodID, Users: make([]metricsDTO, 0, len(report))}
	for _, m := range report {
		resp.Users = append(resp.Users, toMetricsDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// User returns one user's metrics for the period in context.
func (h *ReportHandler) User(w http.ResponseWriter, r *http.Request, userID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	periodID, err := h.periodID(r.Context())
	if err == errMissingResourceID {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	metrics, err := h.service.ComputeUserMetrics(r.Context(), userID, periodID)
	if err != nil {
		h.log(r.Context(), "User", "period_id", periodID, "user_id", userID).ErrorContext(r.Context(), "metrics failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, metricsResponse{Metrics: toMetricsDTO(metrics)})
}

type metricsDTO struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`

	RegularMeetings  int `json:"regular_meetings"`
	OutreachMeetings int `json:"outreach_meetings"`
	ExcusedMeetings  int `json:"excused_meetings"`

	TotalRegularHours     float64 `json:"total_regular_hours"`
	AttendedRegularHours  float64 `json:"attended_regular_hours"`
	ExcusedRegularHours   float64 `json:"excused_regular_hours"`
	EffectiveRegularTotal float64 `json:"effective_regular_total"`
	RegularPercentage     float64 `json:"regular_percentage"`

	TotalOutreachHours    float64 `json:"total_outreach_hours"`
	AttendedOutreachHours float64 `json:"attended_outreach_hours"`

	MeetsTeamRequirement           bool `json:"meets_team_requirement"`
	MeetsTravelRequirement         bool `json:"meets_travel_requirement"`
	MeetsOutreachTeamRequirement   bool `json:"meets_outreach_team_requirement"`
	MeetsOutreachTravelRequirement bool `json:"meets_outreach_travel_requirement"`

	AttendedHours     float64 `json:"attended_hours"`
	EffectiveTotal    float64 `json:"effective_total"`
	OverallPercentage float64 `json:"overall_percentage"`
}

type reportResponse struct {
	PeriodID string       `json:"period_id"`
	Users    []metricsDTO `json:"users"`
}

type metricsResponse struct {
	Metrics metricsDTO `json:"metrics"`
}

func toMetricsDTO(m application.Metrics) metricsDTO {
	return metricsDTO{
		UserID:                         m.UserID,
		DisplayName:                    m.DisplayName,
		RegularMeetings:                m.RegularMeetings,
		OutreachMeetings:               m.OutreachMeetings,
		ExcusedMeetings:                m.ExcusedMeetings,
		TotalRegularHours:              m.TotalRegularHours,
		AttendedRegularHours:           m.AttendedRegularHours,
		ExcusedRegularHours:            m.ExcusedRegularHours,
		EffectiveRegularTotal:          m.EffectiveRegularTotal,
		RegularPercentage:              m.RegularPercentage,
		TotalOutreachHours:             m.TotalOutreachHours,
		AttendedOutreachHours:          m.AttendedOutreachHours,
		MeetsTeamRequirement:           m.MeetsTeamRequirement,
		MeetsTravelRequirement:         m.MeetsTravelRequirement,
		MeetsOutreachTeamRequirement:   m.MeetsOutreachTeamRequirement,
		MeetsOutreachTravelRequirement: m.MeetsOutreachTravelRequirement,
		AttendedHours:                  m.AttendedHours,
		EffectiveTotal:                 m.EffectiveTotal,
		OverallPercentage:              m.OverallPercentage,
	}
}
