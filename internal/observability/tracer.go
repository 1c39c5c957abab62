// Package observability provides the engine's tracing, metrics and logging
// glue (spec.md's "DOM/transport glue stays external" non-goal excludes
// browser instrumentation, not the ambient observability every component
// boundary gets regardless).
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SpanKind classifies a span. The engine only ever produces internal spans
// today (one per tick); Server/Client are carried for whatever embeds the
// debug API behind a real trace collector later.
type SpanKind int

const (
	SpanInternal SpanKind = iota
	SpanServer
	SpanClient
)

// SpanStatus indicates success/failure.
type SpanStatus int

const (
	SpanOK SpanStatus = iota
	SpanError
)

// Span is one recorded unit of work.
type Span struct {
	TraceID   string
	SpanID    string
	ParentID  string
	Operation string
	Kind      SpanKind
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Status    SpanStatus
	Attrs     map[string]string
}

// Tracer records spans in a bounded ring buffer for inspection via the debug
// API. It does not export anywhere; there is no collector in scope.
type Tracer struct {
	mu       sync.Mutex
	spans    []Span
	maxSpans int
	enabled  bool
}

// TracerConfig configures the tracer.
type TracerConfig struct {
	Enabled  bool
	MaxSpans int // ring buffer size
}

// DefaultTracerConfig returns the reference defaults.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{Enabled: true, MaxSpans: 10_000}
}

// NewTracer creates a Tracer per cfg.
func NewTracer(cfg TracerConfig) *Tracer {
	if cfg.MaxSpans <= 0 {
		cfg.MaxSpans = 10_000
	}
	return &Tracer{
		spans:    make([]Span, 0, cfg.MaxSpans),
		maxSpans: cfg.MaxSpans,
		enabled:  cfg.Enabled,
	}
}

// StartSpan begins a new span for operation.
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs map[string]string) *Span {
	if !t.enabled {
		return &Span{Operation: operation}
	}
	return &Span{
		TraceID:   traceIDFromContext(ctx),
		SpanID:    uuid.NewString(),
		ParentID:  spanIDFromContext(ctx),
		Operation: operation,
		Kind:      SpanInternal,
		StartTime: time.Now(),
		Status:    SpanOK,
		Attrs:     attrs,
	}
}

// EndSpan completes span and records it, marking it an error span if err is
// non-nil.
func (t *Tracer) EndSpan(span *Span, err error) {
	if !t.enabled || span == nil {
		return
	}
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	if err != nil {
		span.Status = SpanError
		if span.Attrs == nil {
			span.Attrs = make(map[string]string)
		}
		span.Attrs["error"] = err.Error()
	}
	t.record(*span)
}

// Span records a single already-complete, zero-duration span in one call,
// stamped with the current time — the shape frameloop.Tracer needs per tick:
// Loop.Tick calls it once before returning, with no externally held *Span,
// so the span does not capture the tick's duration.
func (t *Tracer) Span(name string, fields map[string]any) {
	if !t.enabled {
		return
	}
	attrs := make(map[string]string, len(fields))
	for k, v := range fields {
		attrs[k] = toAttrString(v)
	}
	now := time.Now()
	t.record(Span{
		TraceID:   uuid.NewString(),
		SpanID:    uuid.NewString(),
		Operation: name,
		Kind:      SpanInternal,
		StartTime: now,
		EndTime:   now,
		Status:    SpanOK,
		Attrs:     attrs,
	})
}

func (t *Tracer) record(span Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.spans) >= t.maxSpans {
		t.spans = t.spans[1:]
	}
	t.spans = append(t.spans, span)
}

// Spans returns a copy of the most recent limit spans (all of them if
// limit <= 0).
func (t *Tracer) Spans(limit int) []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.spans) {
		limit = len(t.spans)
	}
	start := len(t.spans) - limit
	out := make([]Span, limit)
	copy(out, t.spans[start:])
	return out
}

// SpanCount returns the number of recorded spans.
func (t *Tracer) SpanCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

// Reset clears all recorded spans.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = t.spans[:0]
}

// ─── Context Helpers ────────────────────────────────────────────────────────

type contextKey string

const (
	traceIDKey contextKey = "actuator-trace-id"
	spanIDKey  contextKey = "actuator-span-id"
)

// WithTraceID returns a context carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithSpanID returns a context carrying spanID.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey, spanID)
}

func traceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return uuid.NewString()
}

func spanIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(spanIDKey).(string); ok {
		return v
	}
	return ""
}

func toAttrString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
