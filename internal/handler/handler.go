// Package handler serves the compile API over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/valyala/fastjson"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/audit"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/logger"
)

type CacheStats interface {
	Stats() (hits, misses int64)
}

type Handler struct {
	compiler     *service.Compiler
	stats        *audit.Aggregator
	cache        CacheStats
	maxBodyBytes int64
	parsers      fastjson.ParserPool
	logger       *slog.Logger
}

// New creates the handler. stats and cache may be nil.
func New(compiler *service.Compiler, stats *audit.Aggregator, cache CacheStats, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{
		compiler:     compiler,
		stats:        stats,
		cache:        cache,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "compile-handler"),
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/compile", h.Compile)
	mux.HandleFunc("POST /api/v1/compile/grouped", h.CompileGrouped)
	mux.HandleFunc("GET /api/v1/fields", h.Fields)
	mux.HandleFunc("POST /api/v1/fields/reload", h.ReloadFields)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
}

type compileBody struct {
	criteria  string
	field     string
	rawSuffix string
	highlight bool
}

// Compile handles POST /api/v1/compile with
// {"q": "...", "field": "...", "raw_suffix": "...", "highlight": bool}.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	body, err := h.decode(w, r)
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	resp, err := h.compiler.Compile(r.Context(), service.CompileRequest{
		Criteria:  body.criteria,
		Field:     body.field,
		RawSuffix: body.rawSuffix,
		Highlight: body.highlight,
	})
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeRaw(w, http.StatusOK, resp)
}

// CompileGrouped handles POST /api/v1/compile/grouped with
// {"q": "...", "highlight": bool}.
func (h *Handler) CompileGrouped(w http.ResponseWriter, r *http.Request) {
	body, err := h.decode(w, r)
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	resp, err := h.compiler.CompileGrouped(r.Context(), service.GroupedRequest{
		Criteria:  body.criteria,
		Highlight: body.highlight,
	})
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeRaw(w, http.StatusOK, resp)
}

func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"default_field": h.compiler.DefaultField(),
		"fields":        h.compiler.Fields(),
	})
}

func (h *Handler) ReloadFields(w http.ResponseWriter, r *http.Request) {
	fm, err := h.compiler.ReloadFields(r.Context())
	if err != nil {
		h.writeAppError(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"default_field": h.compiler.DefaultField(),
		"fields":        fm,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.stats.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (compileBody, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return compileBody{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
				"request body exceeds %d bytes", tooLarge.Limit)
		}
		return compileBody{}, apperrors.Invalid(apperrors.ErrInvalidInput, "request body could not be read")
	}

	p := h.parsers.Get()
	defer h.parsers.Put(p)
	v, err := p.ParseBytes(data)
	if err != nil {
		return compileBody{}, apperrors.Invalidf(apperrors.ErrInvalidInput, "invalid JSON body: %v", err)
	}
	if v.Type() != fastjson.TypeObject {
		return compileBody{}, apperrors.Invalid(apperrors.ErrInvalidInput, "request body must be a JSON object")
	}
	q := v.Get("q")
	if q == nil || q.Type() != fastjson.TypeString {
		return compileBody{}, apperrors.Invalid(apperrors.ErrInvalidInput, "field 'q' is required and must be a string")
	}
	criteria, _ := q.StringBytes()

	return compileBody{
		criteria:  string(criteria),
		field:     string(v.GetStringBytes("field")),
		rawSuffix: string(v.GetStringBytes("raw_suffix")),
		highlight: v.GetBool("highlight"),
	}, nil
}

// writeAppError answers with the user-facing message of err. Server-side
// failures other than timeouts and an unavailable store are not detailed.
func (h *Handler) writeAppError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := apperrors.UserMessage(err)
	switch {
	case errors.Is(err, apperrors.ErrTimeout):
		message = "compile timed out"
	case status >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrStoreUnavailable):
		logger.FromContext(ctx).Error("request failed", "error", err)
		message = "internal error"
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
