// Package observability provides distributed tracing for sluice sync runs.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "sluice"

var (
	// Global tracer instance
	tracer trace.Tracer

	// Initialization lock
	initOnce sync.Once
)

// Config contains tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	SamplingRate   float64
	BatchTimeout   time.Duration
	MaxExportBatch int
	MaxQueueSize   int
}

// Initialize sets up the tracing provider. Safe to call more than once;
// only the first call takes effect. When tracing is disabled all spans
// produced by this package are no-ops.
func Initialize(config Config) error {
	var err error

	initOnce.Do(func() {
		if !config.Enabled {
			return
		}

		err = initTracing(config)
		if err != nil {
			return
		}

		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})

	return err
}

// GetTracer returns the global tracer. Before Initialize runs, or when
// tracing is disabled, the returned tracer produces no-op spans.
func GetTracer() trace.Tracer {
	return activeTracer()
}

func activeTracer() trace.Tracer {
	if tracer != nil {
		return tracer
	}
	return otel.Tracer(serviceName)
}

// Span wraps a tracing span and batches attribute writes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span for the named operation.
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := activeTracer().Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span (batched until End).
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span.
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetStatus sets the span status.
func (s *Span) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

// Elapsed returns the time since the span started.
func (s *Span) Elapsed() time.Duration {
	return time.Since(s.startTime)
}

// End flushes batched attributes and ends the span.
func (s *Span) End() {
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}

// SyncTracer produces spans for the stages of one sync run.
type SyncTracer struct {
	accountID string
	jobID     string
}

// NewSyncTracer creates a tracer scoped to one account and job.
func NewSyncTracer(accountID, jobID string) *SyncTracer {
	return &SyncTracer{
		accountID: accountID,
		jobID:     jobID,
	}
}

// StartStage starts a span named sync.<stage> carrying the run identity.
func (st *SyncTracer) StartStage(ctx context.Context, stage string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, fmt.Sprintf("sync.%s", stage))

	span.SetAttribute("sync.stage", stage)
	span.SetAttribute("sync.account_id", st.accountID)
	span.SetAttribute("sync.job_id", st.jobID)

	return ctx, span
}

// TraceStage runs fn inside a stage span, recording the outcome on it.
func (st *SyncTracer) TraceStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	ctx, span := st.StartStage(ctx, stage)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttribute("error", true)
		span.SetAttribute("error.message", err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}
