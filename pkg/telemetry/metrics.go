package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/framehook/pkg/frame"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "framehook").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for frame duration.
	// Default: DefaultFrameBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// DefaultFrameBuckets spans sub-millisecond frames up to several dropped
// frames at 60 fps.
var DefaultFrameBuckets = []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the frame duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "framehook",
		Buckets:   DefaultFrameBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a frame.Observer that records Prometheus metrics.
type Metrics struct {
	framesTotal        prometheus.Counter
	frameDuration      prometheus.Histogram
	consumers          prometheus.Gauge
	looping            prometheus.Gauge
	evaluationsTotal   prometheus.Counter
	skippedTotal       prometheus.Counter
	notificationsTotal prometheus.Counter
	listenerCallsTotal prometheus.Counter
	panicsTotal        *prometheus.CounterVec
}

var _ frame.Observer = (*Metrics)(nil)

// NewMetrics registers the frame loop metrics and returns the observer.
// Registering twice against the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		framesTotal: counter("frames_total", "Total number of frames that evaluated consumers"),

		frameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_duration_seconds",
			Help:        "Time spent evaluating consumers per frame in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		consumers: gauge("consumers", "Number of attached consumers"),
		looping:   gauge("looping", "1 while the frame loop has a frame request outstanding"),

		evaluationsTotal:   counter("evaluations_total", "Total number of tracked func evaluations"),
		skippedTotal:       counter("skipped_total", "Total number of stopped consumers skipped"),
		notificationsTotal: counter("notifications_total", "Total number of evaluations that notified listeners"),
		listenerCallsTotal: counter("listener_calls_total", "Total number of listener invocations"),

		panicsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "consumer_panics_total",
			Help:        "Total number of recovered consumer panics by phase",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),
	}
}

// LoopChanged implements frame.Observer.
func (m *Metrics) LoopChanged(looping bool) {
	if looping {
		m.looping.Set(1)
	} else {
		m.looping.Set(0)
	}
}

// ConsumersChanged implements frame.Observer.
func (m *Metrics) ConsumersChanged(n int) {
	m.consumers.Set(float64(n))
}

// FrameStarted implements frame.Observer.
func (m *Metrics) FrameStarted(ctx context.Context, _ frame.FrameInfo) context.Context {
	return ctx
}

// FrameFinished implements frame.Observer.
func (m *Metrics) FrameFinished(_ context.Context, stats frame.FrameStats) {
	m.framesTotal.Inc()
	m.frameDuration.Observe(stats.Duration.Seconds())
	m.evaluationsTotal.Add(float64(stats.Evaluated))
	m.skippedTotal.Add(float64(stats.Skipped))
	m.notificationsTotal.Add(float64(stats.Notified))
	m.listenerCallsTotal.Add(float64(stats.ListenerCalls))
}

// ConsumerFailed implements frame.Observer.
func (m *Metrics) ConsumerFailed(_ context.Context, err *frame.PanicError) {
	m.panicsTotal.WithLabelValues(err.Phase.String()).Inc()
}
