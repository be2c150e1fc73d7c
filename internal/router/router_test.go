package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/handler"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/service"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/middleware"
)

func newRouter(opts Options) http.Handler {
	svc := service.New(service.Options{DefaultField: "texto", RawSuffix: ".raw"}, service.Deps{})
	return New(handler.New(svc, nil, nil, 0), health.NewChecker(), metrics.New(prometheus.NewRegistry()), opts)
}

func TestRoutes(t *testing.T) {
	r := newRouter(Options{RequestTimeout: time.Second, CORSOrigins: []string{"*"}})

	tests := []struct {
		method, path, body string
		want               int
	}{
		{"POST", "/api/v1/compile", `{"q":"dano"}`, http.StatusOK},
		{"POST", "/api/v1/compile/grouped", `{"q":"dano .titulo.(moral)"}`, http.StatusOK},
		{"GET", "/api/v1/fields", "", http.StatusOK},
		{"GET", "/api/v1/stats", "", http.StatusOK},
		{"GET", "/health/live", "", http.StatusOK},
		{"GET", "/health/ready", "", http.StatusOK},
		{"GET", "/api/v1/compile", "", http.StatusMethodNotAllowed},
		{"GET", "/nowhere", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRateLimitedRouter(t *testing.T) {
	r := newRouter(Options{Limiter: ratelimit.New(1, time.Hour), RetryAfterSeconds: 30})

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/compile", strings.NewReader(`{"q":"dano"}`)))
		return rec
	}
	assert.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}
