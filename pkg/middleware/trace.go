package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/tracing"
)

// Trace opens a root span per request, keyed by the request ID, and logs
// the finished span tree. Requests slower than slow are logged at warn
// level; the rest at debug. Must run inside RequestID.
func Trace(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.Start(r.Context(), r.Method+" "+normalizePath(r.URL.Path), logger.RequestID(r.Context()))
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))
			span.SetAttr("status", sw.status)
			span.End()

			level := slog.LevelDebug
			if slow > 0 && span.Duration > slow {
				level = slog.LevelWarn
			}
			span.Log(ctx, logger.FromContext(ctx), level)
		})
	}
}
