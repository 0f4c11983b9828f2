package telemetry

import (
	"context"

	"github.com/vango-dev/framehook/pkg/frame"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for framehook.
const defaultTracerName = "framehook"

// FrameSpanName is the name of the span recorded for each traced frame.
const FrameSpanName = "framehook.frame"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "framehook").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global provider
	// registered with otel.SetTracerProvider is used.
	TracerProvider trace.TracerProvider

	// SampleEvery traces one frame out of every SampleEvery frames.
	// 0 and 1 trace every frame.
	SampleEvery uint64

	// Attributes are added to every frame span.
	Attributes []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithSampleEvery traces one frame in n.
func WithSampleEvery(n uint64) OTelOption {
	return func(c *OTelConfig) {
		c.SampleEvery = n
	}
}

// WithAttributes adds constant attributes to every frame span.
func WithAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:  defaultTracerName,
		SampleEvery: 1,
	}
}

// Tracer is a frame.Observer that records a span per frame.
type Tracer struct {
	frame.NopObserver

	config OTelConfig
	tracer trace.Tracer
}

var _ frame.Observer = (*Tracer)(nil)

// NewTracer creates the OpenTelemetry observer.
func NewTracer(opts ...OTelOption) *Tracer {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{
		config: config,
		tracer: tp.Tracer(config.TracerName),
	}
}

// spanContextKey marks contexts carrying a span started by Tracer.
type spanContextKey struct{}

// FrameStarted implements frame.Observer.
func (t *Tracer) FrameStarted(ctx context.Context, info frame.FrameInfo) context.Context {
	if n := t.config.SampleEvery; n > 1 && info.Frame%n != 0 {
		return ctx
	}

	attrs := append([]attribute.KeyValue{
		attribute.Int64("framehook.frame", int64(info.Frame)),
		attribute.Int("framehook.consumers", info.Consumers),
	}, t.config.Attributes...)

	spanCtx, span := t.tracer.Start(ctx, FrameSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return context.WithValue(spanCtx, spanContextKey{}, span)
}

// FrameFinished implements frame.Observer.
func (t *Tracer) FrameFinished(ctx context.Context, stats frame.FrameStats) {
	span := SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("framehook.evaluated", stats.Evaluated),
		attribute.Int("framehook.skipped", stats.Skipped),
		attribute.Int("framehook.notified", stats.Notified),
		attribute.Int("framehook.listener_calls", stats.ListenerCalls),
		attribute.Int("framehook.failures", stats.Failures),
	)
	if stats.Failures > 0 {
		span.SetStatus(codes.Error, "consumer panicked")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ConsumerFailed implements frame.Observer. The panic is recorded on the
// frame span when the frame is traced.
func (t *Tracer) ConsumerFailed(ctx context.Context, err *frame.PanicError) {
	span := SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.RecordError(err, trace.WithAttributes(
		attribute.String("framehook.consumer_id", err.ConsumerID),
		attribute.String("framehook.phase", err.Phase.String()),
	))
}

// SpanFromContext returns the frame span Tracer stored in ctx, or nil when
// the frame was not traced.
func SpanFromContext(ctx context.Context) trace.Span {
	if span, ok := ctx.Value(spanContextKey{}).(trace.Span); ok {
		return span
	}
	return nil
}
