// Package tracing records in-process span trees for a single request. Spans
// travel in the context; the root span logs the whole tree when finished.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

type contextKey struct{}

// Span is one timed step. Children are appended concurrently safe.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []any
	children []*Span
	parent   *Span
}

// Start opens a span under the one already in ctx, or a new root span whose
// trace id is the request id (or a fresh UUID).
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.parent = parent
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.TraceID = logger.RequestID(ctx)
		if span.TraceID == "" {
			span.TraceID = uuid.NewString()
		}
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// End stops the clock. Ending a root span logs the tree at debug level.
func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
	if s.parent == nil {
		s.log(slog.Default(), 0)
	}
}

// Children returns a snapshot of the direct child spans.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

func (s *Span) log(l *slog.Logger, depth int) {
	s.mu.Lock()
	args := append([]any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"depth", depth,
		"duration_ms", float64(s.Duration.Microseconds()) / 1000,
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	l.Debug("span", args...)
	for _, c := range children {
		c.log(l, depth+1)
	}
}
