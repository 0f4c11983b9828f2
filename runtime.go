package framehook

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/framehook/pkg/broadcast"
	"github.com/vango-dev/framehook/pkg/debugserver"
	"github.com/vango-dev/framehook/pkg/frame"
	"github.com/vango-dev/framehook/pkg/host"
	"github.com/vango-dev/framehook/pkg/recorder"
	"github.com/vango-dev/framehook/pkg/telemetry"
)

// Runtime owns one registry and everything observing it.
type Runtime struct {
	config Config
	logger *slog.Logger

	host   frame.Host
	ticker *host.Ticker // nil when Config.Host was given

	registry    *frame.Registry
	prom        *prometheus.Registry
	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
	recorder    *recorder.Recorder
	broadcaster *broadcast.Broadcaster
}

// New validates cfg and builds a Runtime. The registry is idle until the
// first consumer attaches.
func New(cfg Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rt := &Runtime{
		config: cfg,
		logger: logger,
		prom:   prometheus.NewRegistry(),
	}

	if cfg.Host != nil {
		rt.host = cfg.Host
	} else {
		rt.ticker = host.NewTicker(cfg.interval(), host.WithTickerLogger(logger))
		rt.host = rt.ticker
	}

	if cfg.ProcessMetrics {
		rt.prom.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	rt.metrics = telemetry.NewMetrics(
		telemetry.WithNamespace(cfg.MetricsNamespace),
		telemetry.WithRegistry(rt.prom),
	)

	tracerOpts := []telemetry.OTelOption{
		telemetry.WithTracerName(cfg.TracerName),
		telemetry.WithSampleEvery(cfg.TraceSampleEvery),
	}
	if cfg.TracerProvider != nil {
		tracerOpts = append(tracerOpts, telemetry.WithTracerProvider(cfg.TracerProvider))
	}
	rt.tracer = telemetry.NewTracer(tracerOpts...)

	slow := cfg.SlowFrame
	if slow == 0 {
		slow = cfg.interval()
	}
	rt.recorder = recorder.New(cfg.TraceCapacity, slow)
	rt.broadcaster = broadcast.New(cfg.StreamBuffer)

	observers := append([]frame.Observer{rt.metrics, rt.tracer, rt.recorder, rt.broadcaster}, cfg.Observers...)

	opts := []frame.RegistryOption{
		frame.WithLogger(logger),
		frame.WithObserver(frame.Observers(observers...)),
		frame.WithMaxIDAttempts(cfg.MaxIDAttempts),
		frame.WithRecoverPanics(cfg.RecoverPanics),
	}
	if cfg.OnPanic != nil {
		opts = append(opts, frame.WithPanicHandler(cfg.OnPanic))
	}
	rt.registry = frame.NewRegistry(rt.host, opts...)

	logger.Debug("runtime ready",
		"fps", cfg.FPS,
		"custom_host", cfg.Host != nil,
		"trace_capacity", cfg.TraceCapacity,
	)
	return rt, nil
}

// Registry returns the frame registry consumers attach to.
func (rt *Runtime) Registry() *frame.Registry { return rt.registry }

// Host returns the frame host driving the registry.
func (rt *Runtime) Host() frame.Host { return rt.host }

// Gatherer returns the Prometheus registry holding the runtime's metrics.
func (rt *Runtime) Gatherer() prometheus.Gatherer { return rt.prom }

// Metrics returns the Prometheus observer.
func (rt *Runtime) Metrics() *telemetry.Metrics { return rt.metrics }

// Tracer returns the OpenTelemetry observer.
func (rt *Runtime) Tracer() *telemetry.Tracer { return rt.tracer }

// Recorder returns the frame timeline recorder.
func (rt *Runtime) Recorder() *recorder.Recorder { return rt.recorder }

// Broadcaster returns the live stats stream.
func (rt *Runtime) Broadcaster() *broadcast.Broadcaster { return rt.broadcaster }

// Config returns the configuration the runtime was built with.
func (rt *Runtime) Config() Config { return rt.config }

// DebugServer builds a read-only debug server for this runtime.
func (rt *Runtime) DebugServer() *debugserver.Server {
	return debugserver.New(debugserver.Config{
		Registry:    rt.registry,
		Recorder:    rt.recorder,
		Gatherer:    rt.prom,
		Broadcaster: rt.broadcaster,
		Logger:      rt.logger,
	})
}

// Close stops the built-in ticker. A host passed in Config is left alone.
//
// The registry is dead afterwards. Attached consumers stay registered but
// are never evaluated again, and Looping keeps reporting the frame request
// the closed ticker dropped, so the debug server's health view still shows
// a loop. Build a new Runtime instead of attaching to a closed one.
func (rt *Runtime) Close() {
	if rt.ticker != nil {
		rt.ticker.Close()
	}
}
