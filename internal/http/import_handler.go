package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/importer"
	"github.com/example/attendance-engine/internal/logging"
)

// maxImportBytes bounds an uploaded sheet.
const maxImportBytes = 8 << 20

type importService interface {
	Import(ctx context.Context, params application.ImportParams) (application.ImportResult, error)
}

// ImportHandler accepts CSV sheets for the bulk importer.
type ImportHandler struct {
	service   importService
	responder responder
	logger    *slog.Logger
}

func NewImportHandler(service importService, logger *slog.Logger) *ImportHandler {
	base := logging.OrDefault(logger)
	return &ImportHandler{service: service, responder: newResponder(base), logger: base}
}

// Create reads the request body as CSV. The kind query parameter defaults to
// attendance.
func (h *ImportHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	kind := importer.Kind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		kind = importer.KindAttendance
	}
	logger := handlerLogger(r.Context(), h.logger, "ImportHandler", "Create", "kind", string(kind))

	table, err := importer.ReadCSV(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.responder.writeError(r.Context(), w, http.StatusRequestEntityTooLarge, errors.New("sheet exceeds the upload limit"))
			return
		}
		logger.WarnContext(r.Context(), "failed to read sheet", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.Import(r.Context(), application.ImportParams{
		Principal: principal,
		Kind:      kind,
		Table:     table,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "import failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := importResponse{
		BatchID:         result.BatchID,
		Checksum:        result.Checksum,
		RowsImported:    result.RowsImported,
		MeetingsCreated: result.MeetingsCreated,
		MeetingsReused:  result.MeetingsReused,
		RecordsCreated:  result.RecordsCreated,
		RecordsUpdated:  result.RecordsUpdated,
		ExcusesCreated:  result.ExcusesCreated,
		ExcusesSkipped:  result.ExcusesSkipped,
		UsersCreated:    result.UsersCreated,
		Diagnostics:     make([]diagnosticDTO, 0, len(result.Diagnostics)),
	}
	for _, d := range result.Diagnostics {
		dto := diagnosticDTO{Line: d.Line, Column: d.Column, User: d.User, Value: d.Value}
		if d.Err != nil {
			dto.Error = d.Err.Error()
		}
		resp.Diagnostics = append(resp.Diagnostics, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resp)
}

type diagnosticDTO struct {
	Line   int    `json:"line"`
	Column int    `json:"column"`
	User   string `json:"user,omitempty"`
	Value  string `json:"value,omitempty"`
	Error  string `json:"error"`
}

type importResponse struct {
	BatchID         string          `json:"batch_id"`
	Checksum        string          `json:"checksum"`
	RowsImported    int             `json:"rows_imported"`
	MeetingsCreated int             `json:"meetings_created"`
	MeetingsReused  int             `json:"meetings_reused"`
	RecordsCreated  int             `json:"records_created"`
	RecordsUpdated  int             `json:"records_updated"`
	ExcusesCreated  int             `json:"excuses_created"`
	ExcusesSkipped  int             `json:"excuses_skipped"`
	UsersCreated    int             `json:"users_created"`
	Diagnostics     []diagnosticDTO `json:"diagnostics"`
}
