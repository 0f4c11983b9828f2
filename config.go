package framehook

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/framehook/pkg/broadcast"
	"github.com/vango-dev/framehook/pkg/frame"
	"github.com/vango-dev/framehook/pkg/host"
	"github.com/vango-dev/framehook/pkg/recorder"
)

// MaxFPS is the highest accepted frame rate.
const MaxFPS = 1000

// Config is the runtime configuration.
type Config struct {
	// FPS is the refresh rate of the built-in ticker host.
	// Default: 60. Ignored when Host is set.
	FPS int

	// Host overrides the ticker, e.g. with a host.Manual stepped by an
	// existing game or UI loop. The runtime does not close it.
	Host frame.Host

	// MaxIDAttempts bounds id collision retries. Default: 8.
	MaxIDAttempts int

	// RecoverPanics isolates consumer panics. Default: true.
	RecoverPanics bool

	// OnPanic is called for every recovered consumer panic.
	OnPanic func(*frame.PanicError)

	// MetricsNamespace prefixes every Prometheus metric. Default: "framehook".
	MetricsNamespace string

	// ProcessMetrics adds the Go runtime and process collectors to the
	// runtime's Prometheus registry.
	ProcessMetrics bool

	// TracerName names the OpenTelemetry tracer. Default: "framehook".
	TracerName string

	// TracerProvider supplies tracers. Nil uses the global provider.
	TracerProvider trace.TracerProvider

	// TraceSampleEvery traces one frame in n. Default: 1 (every frame).
	TraceSampleEvery uint64

	// TraceCapacity is the number of frames the recorder keeps. Default: 240.
	TraceCapacity int

	// SlowFrame is the duration above which a frame counts as dropped.
	// Default: one frame interval.
	SlowFrame time.Duration

	// StreamBuffer is the per-subscriber buffer of the stats stream.
	// Default: 64.
	StreamBuffer int

	// Observers receive every lifecycle event after the built-in ones.
	Observers []frame.Observer

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FPS:              host.DefaultFPS,
		MaxIDAttempts:    frame.DefaultMaxIDAttempts,
		RecoverPanics:    true,
		MetricsNamespace: "framehook",
		TracerName:       "framehook",
		TraceSampleEvery: 1,
		TraceCapacity:    recorder.DefaultCapacity,
		StreamBuffer:     broadcast.DefaultBuffer,
	}
}

// Validate reports the first out of range setting.
func (c Config) Validate() error {
	switch {
	case c.Host == nil && (c.FPS < 1 || c.FPS > MaxFPS):
		return fmt.Errorf("%w: FPS must be between 1 and %d, got %d", ErrInvalidConfig, MaxFPS, c.FPS)
	case c.MaxIDAttempts < 1:
		return fmt.Errorf("%w: MaxIDAttempts must be positive, got %d", ErrInvalidConfig, c.MaxIDAttempts)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: MetricsNamespace is empty", ErrInvalidConfig)
	case c.TraceCapacity < 1:
		return fmt.Errorf("%w: TraceCapacity must be positive, got %d", ErrInvalidConfig, c.TraceCapacity)
	case c.StreamBuffer < 1:
		return fmt.Errorf("%w: StreamBuffer must be positive, got %d", ErrInvalidConfig, c.StreamBuffer)
	case c.SlowFrame < 0:
		return fmt.Errorf("%w: SlowFrame is negative", ErrInvalidConfig)
	}
	return nil
}

// interval is the frame interval implied by FPS.
func (c Config) interval() time.Duration {
	return host.IntervalForFPS(c.FPS)
}
