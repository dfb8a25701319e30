package monitoring

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDHeader carries the trace ID across a request and its response
const TraceIDHeader = "X-Trace-ID"

// SpanStatus represents the status of a span
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)

// SpanEvent is a timestamped note inside a span
type SpanEvent struct {
	Name       string                 `json:"name"`
	Timestamp  time.Time              `json:"timestamp"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Span is one timed operation, usually a whole HTTP request
type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	Duration  time.Duration     `json:"duration"`
	Tags      map[string]string `json:"tags,omitempty"`
	Events    []SpanEvent       `json:"events,omitempty"`
	Status    SpanStatus        `json:"status"`
	Error     string            `json:"error,omitempty"`

	mu sync.Mutex
}

// SetTag sets a tag on the span
func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tags[key] = value
}

// AddEvent appends an event to the span
func (s *Span) AddEvent(name string, attributes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, SpanEvent{Name: name, Timestamp: time.Now(), Attributes: attributes})
}

type spanKey struct{}

// SpanFromContext returns the span carried by ctx, or nil
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// Tracer hands out spans and logs them when they end
type Tracer struct {
	serviceName string
	logger      *Logger

	mu     sync.RWMutex
	active map[string]*Span

	completed int64
	failed    int64
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string, logger *Logger) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		logger:      logger,
		active:      make(map[string]*Span),
	}
}

// StartSpan opens a span. A span already in ctx becomes the parent and lends
// its trace ID; otherwise traceID is used, or a new one is generated.
func (t *Tracer) StartSpan(ctx context.Context, operation, traceID string) (*Span, context.Context) {
	span := &Span{
		SpanID:    uuid.New().String(),
		Operation: operation,
		StartTime: time.Now(),
		Tags:      map[string]string{"service": t.serviceName},
		Status:    SpanStatusOK,
	}

	switch parent := SpanFromContext(ctx); {
	case parent != nil:
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	case traceID != "":
		span.TraceID = traceID
	default:
		span.TraceID = uuid.New().String()
	}

	t.mu.Lock()
	t.active[span.SpanID] = span
	t.mu.Unlock()

	return span, context.WithValue(ctx, spanKey{}, span)
}

// EndSpan closes span, marking it failed when err is non-nil
func (t *Tracer) EndSpan(span *Span, err error) {
	span.mu.Lock()
	span.Duration = time.Since(span.StartTime)
	if err != nil {
		span.Status = SpanStatusError
		span.Error = err.Error()
	}
	attrs := []any{
		"trace_id", span.TraceID,
		"span_id", span.SpanID,
		"operation", span.Operation,
		"status", span.Status,
		"duration_ms", span.Duration.Milliseconds(),
		"event_count", len(span.Events),
	}
	if span.ParentID != "" {
		attrs = append(attrs, "parent_id", span.ParentID)
	}
	if span.Error != "" {
		attrs = append(attrs, "error", span.Error)
	}
	for k, v := range span.Tags {
		attrs = append(attrs, "tag_"+k, v)
	}
	span.mu.Unlock()

	t.mu.Lock()
	delete(t.active, span.SpanID)
	t.mu.Unlock()

	if err != nil {
		atomic.AddInt64(&t.failed, 1)
	} else {
		atomic.AddInt64(&t.completed, 1)
	}

	t.logger.Debug("Trace Span", attrs...)
}

// Stats reports span counters
func (t *Tracer) Stats() map[string]interface{} {
	t.mu.RLock()
	active := len(t.active)
	t.mu.RUnlock()

	return map[string]interface{}{
		"service":         t.serviceName,
		"active_spans":    active,
		"completed_spans": atomic.LoadInt64(&t.completed),
		"failed_spans":    atomic.LoadInt64(&t.failed),
	}
}

// TracingMiddleware opens a span per request, echoes its trace ID and
// closes it with the gin errors collected on the way
func TracingMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		incoming := c.GetHeader(TraceIDHeader)
		if len(incoming) > 64 {
			incoming = ""
		}

		span, ctx := tracer.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath(), incoming)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)
		if id := c.GetString("request_id"); id != "" {
			span.SetTag("request_id", id)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, span.TraceID)

		c.Next()

		span.SetTag("http.status_code", fmt.Sprintf("%d", c.Writer.Status()))

		var err error
		if len(c.Errors) > 0 {
			err = fmt.Errorf("request errors: %v", c.Errors.Errors())
		}
		tracer.EndSpan(span, err)
	}
}
