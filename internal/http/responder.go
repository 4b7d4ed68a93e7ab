package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/logging"
)

var (
	errBadRequestBody    = errors.New("request body is malformed")
	errMissingResourceID = errors.New("resource id is required")
	errMissingPrincipal  = errors.New("acting user header is required")
	errUnknownPrincipal  = errors.New("acting user is not registered")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application sentinels into status codes.
// The error code is the same label the services log as error_kind.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status := statusFor(err)
	resp := errorResponse{
		ErrorCode: strings.ToUpper(application.ErrorKind(err)),
		Message:   publicMessage(err, status),
	}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) && vErr.HasErrors() {
		resp.Errors = vErr.FieldErrors
	}
	r.writeJSON(ctx, w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, application.ErrNotFound),
		errors.Is(err, application.ErrMeetingNotFound),
		errors.Is(err, application.ErrNoMatchingMeeting),
		errors.Is(err, application.ErrNoExistingRecord):
		return http.StatusNotFound
	case errors.Is(err, application.ErrAlreadyExists),
		errors.Is(err, application.ErrAlreadyLogged),
		errors.Is(err, application.ErrDuplicatePending),
		errors.Is(err, application.ErrAlreadyExcused),
		errors.Is(err, application.ErrAlreadyReviewed),
		errors.Is(err, application.ErrAmbiguousMeeting):
		return http.StatusConflict
	case errors.Is(err, application.ErrInvalidInterval),
		errors.Is(err, application.ErrInvalidRange),
		errors.Is(err, application.ErrOutreachNotExcusable):
		return http.StatusUnprocessableEntity
	}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// publicMessage hides storage details behind the generic status text.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return http.StatusText(status)
	}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return "validation failed"
	}
	return strings.TrimPrefix(err.Error(), "application: ")
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
