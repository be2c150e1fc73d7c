// Package router wires the compile API routes and applies the middleware
// chain.
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/handler"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/middleware"
)

type Options struct {
	// RequestTimeout bounds each request; zero disables the timeout.
	RequestTimeout time.Duration
	CORSOrigins    []string
	// SlowRequest raises span logging to warn level; zero keeps it at debug.
	SlowRequest time.Duration
	// Limiter is nil when rate limiting is disabled.
	Limiter           *ratelimit.Limiter
	RetryAfterSeconds int
}

// New builds the service HTTP handler.
//
// Route table:
//
//	POST   /api/v1/compile             → compile a simple criteria
//	POST   /api/v1/compile/grouped     → compile a field-grouped criteria
//	GET    /api/v1/fields              → active field map
//	POST   /api/v1/fields/reload       → reload fields from the store
//	GET    /api/v1/stats               → compile statistics
//	GET    /api/v1/cache/stats         → cache hit rate
//	GET    /health/live                → liveness
//	GET    /health/ready               → readiness
//
// Middleware chain (outermost first):
//
//	Recover → RequestID → Trace → Metrics → CORS → RateLimit → Timeout → mux
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics, opts Options) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if opts.RequestTimeout > 0 {
		chain = middleware.Timeout(opts.RequestTimeout)(chain)
	}
	if opts.Limiter != nil {
		chain = middleware.RateLimit(opts.Limiter, opts.RetryAfterSeconds)(chain)
	}
	if len(opts.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins))(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Trace(opts.SlowRequest)(chain)
	chain = middleware.RequestID(chain)
	chain = middleware.Recover(chain)
	return chain
}
