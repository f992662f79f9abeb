package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/reelsmith-api/internal/api/shared"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
)

// NewTraceMiddleware assigns every request a trace ID and a request-scoped
// logger derived from base that carries it.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			log := base.With("trace_id", shared.GetTraceID(ctx))
			log.Debug("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)
			next.ServeHTTP(w, r.WithContext(logger.WithLogger(ctx, log)))
		})
	}
}
