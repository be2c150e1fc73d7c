package service

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/audit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/fields"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/metrics"
)

var testOptions = Options{
	DefaultField: "texto",
	RawSuffix:    ".raw",
	Fields:       fields.Map{"CAMPO": ".raw", "DATA": ""},
}

type recorder struct {
	mu     sync.Mutex
	events []audit.CompileEvent
}

func (r *recorder) Track(e audit.CompileEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type mapCache struct {
	data        map[string][]byte
	invalidated int
}

func (c *mapCache) GetOrCompute(_ context.Context, key cache.Key, compute func() ([]byte, error)) ([]byte, bool, error) {
	if body, ok := c.data[key.String()]; ok {
		return body, true, nil
	}
	body, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.data[key.String()] = body
	return body, false, nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.invalidated++
	c.data = make(map[string][]byte)
	return nil
}

type staticStore struct {
	fm  fields.Map
	err error
}

func (s staticStore) Load(context.Context) (fields.Map, error) {
	return s.fm, s.err
}

func TestCompileRendersResponse(t *testing.T) {
	s := New(testOptions, Deps{})

	body, err := s.Compile(context.Background(), CompileRequest{Criteria: "dano"})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"canonical": "dano",
		"mode": "criteria",
		"criteria": ["dano"],
		"query": {"query": {"term": {"texto": "dano"}}},
		"advisories": []
	}`, string(body))

	body, err = s.Compile(context.Background(), CompileRequest{Criteria: "dano", Field: "ementa", Highlight: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"canonical": "dano",
		"mode": "criteria",
		"criteria": ["dano"],
		"query": {
			"query": {"term": {"ementa": "dano"}},
			"highlight": {"type": "plain", "fields": {"ementa": {"require_field_match": false, "max_analyzed_offset": 1000000}}},
			"_source": [""]
		},
		"advisories": []
	}`, string(body))
}

func TestCompileSmartSearchHasNoCriteriaTree(t *testing.T) {
	s := New(testOptions, Deps{})
	body, err := s.Compile(context.Background(), CompileRequest{Criteria: "PROX3: 2020 dano"})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"mode":"proximity"`)
	assert.Contains(t, string(body), `"criteria":null`)
}

func TestCompileRejectionIsAudited(t *testing.T) {
	rec := &recorder{}
	s := New(testOptions, Deps{Auditors: []Auditor{rec}})
	ctx := logger.WithRequestID(context.Background(), "req-1")

	_, err := s.Compile(ctx, CompileRequest{Criteria: "(dano"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnmatchedOpen)
	assert.Equal(t, apperrors.MsgMissingClose, apperrors.UserMessage(err))

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, audit.ResultError, ev.Result)
	assert.Equal(t, "unmatched_open", ev.ErrorKind)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, "(dano", ev.Criteria)
	assert.Equal(t, "texto", ev.Field)
}

func TestCompileUsesCache(t *testing.T) {
	rec := &recorder{}
	c := &mapCache{data: make(map[string][]byte)}
	s := New(testOptions, Deps{Cache: c, Auditors: []Auditor{rec}})

	first, err := s.Compile(context.Background(), CompileRequest{Criteria: "dano adj2 moral"})
	require.NoError(t, err)
	second, err := s.Compile(context.Background(), CompileRequest{Criteria: " dano adj2 moral "})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, rec.events, 2)
	assert.Equal(t, audit.ResultOK, rec.events[0].Result)
	assert.Equal(t, audit.ResultCached, rec.events[1].Result)
	assert.Equal(t, "criteria", rec.events[1].Mode)
	assert.Equal(t, "dano ADJ2 moral", rec.events[1].Canonical)
}

func TestCacheSeparatesSpacingThatChangesMode(t *testing.T) {
	rec := &recorder{}
	c := &mapCache{data: make(map[string][]byte)}
	s := New(testOptions, Deps{Cache: c, Auditors: []Auditor{rec}})

	short, err := s.Compile(context.Background(), CompileRequest{Criteria: "a culpa de terceiro, o dano da vitima"})
	require.NoError(t, err)
	padded, err := s.Compile(context.Background(), CompileRequest{Criteria: "a   culpa   de   terceiro,   o   dano   da   vitima"})
	require.NoError(t, err)
	assert.NotEqual(t, short, padded)

	require.Len(t, rec.events, 2)
	assert.Equal(t, audit.ResultOK, rec.events[0].Result)
	assert.Equal(t, "criteria", rec.events[0].Mode)
	assert.Equal(t, 0, rec.events[0].Advisories)
	assert.Equal(t, audit.ResultOK, rec.events[1].Result)
	assert.Equal(t, "contains", rec.events[1].Mode)
	assert.Equal(t, 1, rec.events[1].Advisories)
}

func TestCompileGrouped(t *testing.T) {
	s := New(testOptions, Deps{})

	body, err := s.CompileGrouped(context.Background(), GroupedRequest{Criteria: "dano .CAMPO.(teste)"})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"canonical": ".texto.(dano) E .CAMPO.(teste)",
		"mode": "grouped",
		"query": {"query": {"bool": {"must": [{"term": {"texto": "dano"}}, {"term": {"CAMPO": "teste"}}]}}},
		"advisories": []
	}`, string(body))

	_, err = s.CompileGrouped(context.Background(), GroupedRequest{Criteria: ".TITULO.(dano)"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownField)
	assert.Equal(t, 400, apperrors.HTTPStatusCode(err))
}

func TestReloadFields(t *testing.T) {
	c := &mapCache{data: make(map[string][]byte)}
	s := New(testOptions, Deps{
		Store: staticStore{fm: fields.Map{"TITULO": "", "DATA": ".keyword"}},
		Cache: c,
	})

	fm, err := s.ReloadFields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fields.Map{"CAMPO": ".raw", "DATA": ".keyword", "TITULO": ""}, fm)
	assert.Equal(t, fm, s.Fields())
	assert.Equal(t, 1, c.invalidated)

	body, err := s.CompileGrouped(context.Background(), GroupedRequest{Criteria: ".TITULO.(dano)"})
	require.NoError(t, err)
	assert.Contains(t, string(body), `{"term":{"TITULO":"dano"}}`)

	// the returned map is a copy
	fm["OUTRO"] = ""
	assert.NotContains(t, s.Fields(), "OUTRO")
}

func TestReloadFieldsFailures(t *testing.T) {
	_, err := New(testOptions, Deps{}).ReloadFields(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Equal(t, 503, apperrors.HTTPStatusCode(err))

	s := New(testOptions, Deps{Store: staticStore{err: errors.New("connection refused")}})
	_, err = s.ReloadFields(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Equal(t, testOptions.Fields, s.Fields())
}

func TestCompileMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := New(testOptions, Deps{Metrics: m})

	_, err := s.Compile(context.Background(), CompileRequest{Criteria: "dano"})
	require.NoError(t, err)
	_, err = s.CompileGrouped(context.Background(), GroupedRequest{Criteria: ".CAMPO.(a) ou dano"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	out, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(out), `brs_compiles_total{mode="criteria",result="ok"} 1`)
	assert.Contains(t, string(out), `brs_compiles_total{mode="unknown",result="error"} 1`)
	assert.Contains(t, string(out), `brs_compile_errors_total{kind="leading_or"} 1`)
	assert.Contains(t, string(out), "brs_fields_configured 2")
}
