package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/kotoba-api/internal/api/shared"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
)

// TraceHeader echoes the request trace ID to the client.
const TraceHeader = "X-Trace-ID"

// NewTraceMiddleware returns middleware that gives each request a trace ID
// and a request-scoped logger derived from base. Apply it first so every
// later handler logs with the ID.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			ctx = logger.WithLogger(ctx, base.With(slog.String("trace_id", traceID)))
			ctx = logger.WithRequestID(ctx, traceID)

			logger.FromContext(ctx).Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(TraceHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
