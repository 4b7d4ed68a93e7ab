package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/logging"
	"github.com/example/attendance-engine/internal/observability"
)

// PrincipalHeader carries the user ID asserted by the fronting identity proxy.
const PrincipalHeader = "X-Attendance-User"

// UserResolver looks up the user behind a principal header.
type UserResolver interface {
	GetUser(ctx context.Context, id string) (application.User, error)
}

// RequirePrincipal resolves the acting user from PrincipalHeader. The header
// is trusted as-is; authentication happens upstream.
func RequirePrincipal(resolver UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(PrincipalHeader))
			if userID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingPrincipal)
				return
			}

			user, err := resolver.GetUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, application.ErrNotFound) {
					responder.writeError(r.Context(), w, http.StatusUnauthorized, errUnknownPrincipal)
					return
				}
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "principal lookup failed", "user_id", userID, "error", err)
				responder.handleServiceError(r.Context(), w, err)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), application.Principal{UserID: user.ID, IsAdmin: user.IsAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// RequestLogger attaches a request scoped logger and counts the response.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
			observability.RecordHTTPRequest(resourceOf(r.URL.Path), r.Method, rec.status)
		})
	}
}

// resourceOf returns the first path segment, keeping metric labels bounded.
func resourceOf(path string) string {
	segment, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	switch segment {
	case "users", "meetings", "periods", "attendance", "excuse-requests", "excuses", "reports", "imports":
		return segment
	}
	return "other"
}
