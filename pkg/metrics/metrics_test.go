package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CompilesTotal.WithLabelValues("criteria", "ok").Inc()
	m.CompileErrorsTotal.WithLabelValues("leading_or").Add(2)
	m.CacheHitsTotal.Inc()

	body := scrape(t, m)
	assert.Contains(t, body, `brs_compiles_total{mode="criteria",result="ok"} 1`)
	assert.Contains(t, body, `brs_compile_errors_total{kind="leading_or"} 2`)
	assert.Contains(t, body, "cache_hits_total 1")

	// a second set on a fresh registry does not collide
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
