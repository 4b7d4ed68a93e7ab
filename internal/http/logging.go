package http

import (
	"context"
	"log/slog"

	"github.com/example/attendance-engine/internal/logging"
)

// handlerLogger scopes a logger to one handler operation and tags it with
// the acting principal and path resource carried by the request context.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, fallback, "handler", handlerName, operation, append(requestAttrs(ctx), attrs...)...)
}

func requestAttrs(ctx context.Context) []any {
	var attrs []any
	if principal, ok := PrincipalFromContext(ctx); ok {
		attrs = append(attrs)
		if principal.IsAdmin {
			attrs = append(attrs, "principal_admin", true)
		}
	}
	if id, ok := ResourceIDFromContext(ctx); ok && id != "" {
		attrs = append(attrs, "resource_id", id)
	}
	return attrs
}
