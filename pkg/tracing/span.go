// Package tracing provides lightweight request spans that travel through
// Go contexts. A request gets a root span, compile stages hang child spans
// off it, and the finished tree is written to slog.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is a timed stage of a request.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration
	Children []*Span
	Attrs    map[string]any

	mu    sync.Mutex
	ended bool
}

// Start creates a root span and stores it in the returned context.
func Start(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{
		Name:    name,
		TraceID: traceID,
		Start:   time.Now(),
		Attrs:   make(map[string]any),
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// Child starts a span under the one carried by ctx. Without a parent the
// span is detached and never logged.
func Child(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{
		Name:  name,
		Start: time.Now(),
		Attrs: make(map[string]any),
	}
	if parent := FromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span duration. Calls after the first are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.Start)
}

// SetAttr attaches an attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// Log writes the span and its children, depth first.
func (s *Span) Log(ctx context.Context, log *slog.Logger, level slog.Level) {
	s.log(ctx, log, level, 0)
}

func (s *Span) log(ctx context.Context, log *slog.Logger, level slog.Level, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_us", s.Duration.Microseconds(),
		"depth", depth,
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	log.Log(ctx, level, "span", attrs...)
	for _, child := range children {
		child.log(ctx, log, level, depth+1)
	}
}
