// Package service wraps the criteria compiler with the field map, the
// compile cache, metrics and the audit trail. Responses are returned as the
// JSON bodies served by the HTTP API.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/audit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/compiler"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/brs/grouped"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/fields"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/tracing"
)

const (
	EndpointCompile = "compile"
	EndpointGrouped = "grouped"
)

type FieldStore interface {
	Load(ctx context.Context) (fields.Map, error)
}

// Cache is implemented by *cache.CompileCache.
type Cache interface {
	GetOrCompute(ctx context.Context, key cache.Key, compute func() ([]byte, error)) ([]byte, bool, error)
	Invalidate(ctx context.Context) error
}

type Auditor interface {
	Track(event audit.CompileEvent)
}

type Options struct {
	DefaultField   string
	RawSuffix      string
	Fields         fields.Map
	CompileTimeout time.Duration
}

// Deps are the optional collaborators. Any of them may be nil.
type Deps struct {
	Store    FieldStore
	Cache    Cache
	Metrics  *metrics.Metrics
	Auditors []Auditor
}

type CompileRequest struct {
	Criteria  string
	Field     string
	RawSuffix string
	Highlight bool
}

type GroupedRequest struct {
	Criteria  string
	Highlight bool
}

type Compiler struct {
	opts   Options
	deps   Deps
	logger *slog.Logger

	mu      sync.RWMutex
	fields  fields.Map
	version uint64
}

func New(opts Options, deps Deps) *Compiler {
	if opts.DefaultField == "" {
		opts.DefaultField = compiler.DefaultField
	}
	s := &Compiler{
		opts:   opts,
		deps:   deps,
		logger: slog.Default().With("component", "compiler-service"),
		fields: opts.Fields.Clone(),
	}
	if deps.Metrics != nil {
		deps.Metrics.FieldsConfigured.Set(float64(len(s.fields)))
	}
	return s
}

// Compile compiles a simple criteria on one field.
func (s *Compiler) Compile(ctx context.Context, req CompileRequest) ([]byte, error) {
	criteria := strings.TrimSpace(req.Criteria)
	field, suffix := req.Field, req.RawSuffix
	if field == "" {
		field = s.opts.DefaultField
		if suffix == "" {
			suffix = s.opts.RawSuffix
		}
	}
	key := cache.Key{
		Endpoint:  EndpointCompile,
		Criteria:  criteria,
		Field:     field,
		RawSuffix: suffix,
		Highlight: req.Highlight,
	}
	return s.run(ctx, key, func() ([]byte, error) {
		res, err := compiler.Compile(criteria, compiler.Options{Field: field, RawSuffix: suffix})
		if err != nil {
			return nil, err
		}
		return renderCompile(res, req.Highlight), nil
	})
}

// CompileGrouped compiles a criteria that may scope parts of itself to
// fields with ".field.(...)", checked against the active field map.
func (s *Compiler) CompileGrouped(ctx context.Context, req GroupedRequest) ([]byte, error) {
	criteria := strings.TrimSpace(req.Criteria)
	fm, version := s.snapshot()
	key := cache.Key{
		Endpoint:      EndpointGrouped,
		Criteria:      criteria,
		Field:         s.opts.DefaultField,
		RawSuffix:     s.opts.RawSuffix,
		Highlight:     req.Highlight,
		FieldsVersion: version,
	}
	return s.run(ctx, key, func() ([]byte, error) {
		b, err := grouped.Compile(criteria, s.opts.DefaultField, s.opts.RawSuffix, fm)
		if err != nil {
			return nil, err
		}
		return renderGrouped(b, req.Highlight), nil
	})
}

func (s *Compiler) run(ctx context.Context, key cache.Key, compile func() ([]byte, error)) ([]byte, error) {
	start := time.Now()
	ctx, span := tracing.Child(ctx, "compile."+key.Endpoint)
	defer span.End()
	compute := func() ([]byte, error) {
		_, build := tracing.Child(ctx, "build")
		defer build.End()
		var body []byte
		err := resilience.WithTimeout(ctx, s.opts.CompileTimeout, key.Endpoint, func(context.Context) error {
			var err error
			body, err = compile()
			return err
		})
		if err != nil {
			return nil, err
		}
		return body, nil
	}

	var (
		body   []byte
		cached bool
		err    error
	)
	if s.deps.Cache != nil {
		body, cached, err = s.deps.Cache.GetOrCompute(ctx, key, compute)
	} else {
		body, err = compute()
	}
	span.SetAttr("cache_hit", cached)
	if err != nil {
		span.SetAttr("error_kind", apperrors.Kind(err))
	}
	s.record(ctx, key, body, cached, err, time.Since(start))
	return body, err
}

func (s *Compiler) record(ctx context.Context, key cache.Key, body []byte, cached bool, err error, elapsed time.Duration) {
	log := logger.FromContext(ctx)
	event := audit.CompileEvent{
		Endpoint:  key.Endpoint,
		Criteria:  key.Criteria,
		Field:     key.Field,
		LatencyUs: elapsed.Microseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	switch {
	case err != nil:
		event.Result = audit.ResultError
		event.ErrorKind = apperrors.Kind(err)
		if apperrors.HTTPStatusCode(err) < http.StatusInternalServerError {
			log.Info("criteria rejected", "endpoint", key.Endpoint, "criteria", key.Criteria, "kind", event.ErrorKind)
		} else {
			log.Error("compile failed", "endpoint", key.Endpoint, "criteria", key.Criteria, "error", err)
		}
	case cached:
		event.Result = audit.ResultCached
	default:
		event.Result = audit.ResultOK
	}
	if body != nil {
		sum := summarize(body)
		event.Mode = sum.mode
		event.Canonical = sum.canonical
		event.Advisories = sum.advisories
		log.Info("criteria compiled",
			"endpoint", key.Endpoint,
			"mode", sum.mode,
			"cache_hit", cached,
			"latency_us", event.LatencyUs,
		)
	}

	if m := s.deps.Metrics; m != nil {
		mode := event.Mode
		if mode == "" {
			mode = "unknown"
		}
		m.CompilesTotal.WithLabelValues(mode, string(event.Result)).Inc()
		m.CompileLatency.WithLabelValues(key.Endpoint).Observe(elapsed.Seconds())
		if err != nil {
			m.CompileErrorsTotal.WithLabelValues(event.ErrorKind).Inc()
		}
		if event.Result == audit.ResultOK && event.Advisories > 0 {
			m.AdvisoriesTotal.Add(float64(event.Advisories))
		}
	}
	for _, a := range s.deps.Auditors {
		a.Track(event)
	}
}

func (s *Compiler) snapshot() (fields.Map, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields, s.version
}

// Fields returns a copy of the active field map.
func (s *Compiler) Fields() fields.Map {
	fm, _ := s.snapshot()
	return fm.Clone()
}

func (s *Compiler) DefaultField() string {
	return s.opts.DefaultField
}

// ReloadFields replaces the active field map with the configured fields
// overridden by the store contents, then drops cached grouped responses.
func (s *Compiler) ReloadFields(ctx context.Context) (fields.Map, error) {
	if s.deps.Store == nil {
		return nil, apperrors.New(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "field store is not configured")
	}
	loaded, err := s.deps.Store.Load(ctx)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "loading fields: %v", err)
	}
	fm := s.opts.Fields.Merge(loaded)

	s.mu.Lock()
	s.fields = fm
	s.version++
	version := s.version
	s.mu.Unlock()

	if s.deps.Metrics != nil {
		s.deps.Metrics.FieldsConfigured.Set(float64(len(fm)))
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after field reload failed", "error", err)
		}
	}
	s.logger.Info("field map reloaded", "fields", len(fm), "version", version)
	return fm.Clone(), nil
}
