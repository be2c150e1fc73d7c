package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/audit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/fields"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
)

type staticStore fields.Map

func (s staticStore) Load(context.Context) (fields.Map, error) {
	return fields.Map(s), nil
}

type fixedStats struct{}

func (fixedStats) Stats() (int64, int64) { return 3, 1 }

func newTestServer(t *testing.T, deps service.Deps) (*httptest.Server, *audit.Aggregator) {
	t.Helper()
	agg := audit.NewAggregator()
	deps.Auditors = append(deps.Auditors, agg)
	svc := service.New(service.Options{
		DefaultField: "texto",
		RawSuffix:    ".raw",
		Fields:       fields.Map{"CAMPO": ".raw"},
	}, deps)
	mux := http.NewServeMux()
	New(svc, agg, fixedStats{}, 256).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, agg
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.String()
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.String()
}

func TestCompileEndpoint(t *testing.T) {
	srv, agg := newTestServer(t, service.Deps{})

	status, body := post(t, srv, "/api/v1/compile", `{"q": "dano com moral"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{
		"canonical": "dano PROX30 moral",
		"mode": "criteria",
		"criteria": ["dano", "PROX30", "moral"],
		"query": {"query": {"span_near": {"clauses": [{"span_term": {"texto": "dano"}}, {"span_term": {"texto": "moral"}}], "slop": 29, "in_order": false}}},
		"advisories": []
	}`, body)
	assert.Equal(t, int64(1), agg.Stats().TotalCompiles)
}

func TestCompileEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t, service.Deps{})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{"unbalanced", "/api/v1/compile", `{"q": "(dano adj2 moral"}`, 400, apperrors.MsgMissingClose},
		{"field in simple search", "/api/v1/compile", `{"q": "dano .CAMPO.(x)"}`, 400, apperrors.MsgFieldInSimpleSearch},
		{"leading or", "/api/v1/compile/grouped", `{"q": ".CAMPO.(x) ou dano"}`, 400, apperrors.MsgLeadingOr},
		{"missing q", "/api/v1/compile", `{"field": "texto"}`, 400, "field 'q' is required and must be a string"},
		{"not an object", "/api/v1/compile", `["dano"]`, 400, "request body must be a JSON object"},
		{"too large", "/api/v1/compile", `{"q": "` + strings.Repeat("a", 300) + `"}`, 413, "request body exceeds 256 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, srv, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body, `"error":`)
			assert.Contains(t, body, tt.want)
		})
	}

	status, body := post(t, srv, "/api/v1/compile", `{"q": `)
	assert.Equal(t, 400, status)
	assert.Contains(t, body, "invalid JSON body")
}

func TestGroupedEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, service.Deps{})

	status, body := post(t, srv, "/api/v1/compile/grouped", `{"q": "dano .CAMPO.(teste)", "highlight": true}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{
		"canonical": ".texto.(dano) E .CAMPO.(teste)",
		"mode": "grouped",
		"query": {
			"query": {"bool": {"must": [{"term": {"texto": "dano"}}, {"term": {"CAMPO": "teste"}}]}},
			"highlight": {"type": "plain", "fields": {"texto": {"require_field_match": false, "max_analyzed_offset": 1000000}}},
			"_source": [""]
		},
		"advisories": []
	}`, body)
}

func TestFieldEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, service.Deps{Store: staticStore{"TIPO": ""}})

	status, body := get(t, srv, "/api/v1/fields")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"default_field": "texto", "fields": {"CAMPO": ".raw"}}`, body)

	status, body = post(t, srv, "/api/v1/fields/reload", ``)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"default_field": "texto", "fields": {"CAMPO": ".raw", "TIPO": ""}}`, body)

	status, _ = post(t, srv, "/api/v1/compile/grouped", `{"q": ".TIPO.(acordao)"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestReloadWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t, service.Deps{})
	status, body := post(t, srv, "/api/v1/fields/reload", ``)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"error": "field store is not configured"}`, body)
}

func TestStatsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, service.Deps{})
	post(t, srv, "/api/v1/compile", `{"q": "dano"}`)
	post(t, srv, "/api/v1/compile", `{"q": "(dano"}`)

	status, body := get(t, srv, "/api/v1/stats")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"total_compiles":2`)
	assert.Contains(t, body, `"rejected":1`)
	assert.Contains(t, body, `"unmatched_open":1`)

	status, body = get(t, srv, "/api/v1/cache/stats")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"hits": 3, "misses": 1, "total": 4, "hit_rate": "75.0%"}`, body)
}
