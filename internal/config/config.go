package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/framehook"
	"github.com/vango-dev/framehook/internal/errors"
)

const (
	// YAMLFileName is the preferred configuration file.
	YAMLFileName = "framehook.yaml"

	// JSONFileName is read when no YAML file exists.
	JSONFileName = "framehook.json"

	// DefaultAddr is the default debug server address.
	DefaultAddr = "127.0.0.1:9090"

	// DefaultS3Prefix is the default key prefix for uploaded traces.
	DefaultS3Prefix = "framehook/"
)

// Config represents the complete framehook project configuration.
type Config struct {
	Loop    LoopConfig    `yaml:"loop" json:"loop"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Trace   TraceConfig   `yaml:"trace" json:"trace"`

	// path stores where the config was loaded from; empty for defaults.
	path string
}

// LoopConfig configures the frame loop.
type LoopConfig struct {
	// FPS is the frame rate of the ticker host.
	FPS int `yaml:"fps" json:"fps"`

	// MaxIDAttempts bounds id collision retries.
	MaxIDAttempts int `yaml:"maxIdAttempts" json:"maxIdAttempts"`

	// RecoverPanics isolates consumer panics. A pointer so that an absent
	// key keeps the default.
	RecoverPanics *bool `yaml:"recoverPanics,omitempty" json:"recoverPanics,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Namespace      string `yaml:"namespace" json:"namespace"`
	ProcessMetrics bool   `yaml:"processMetrics" json:"processMetrics"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	TracerName  string `yaml:"tracerName" json:"tracerName"`
	SampleEvery uint64 `yaml:"sampleEvery" json:"sampleEvery"`
}

// ServerConfig configures the debug server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// TraceConfig configures the frame recorder and its export.
type TraceConfig struct {
	// Capacity is the number of frames kept.
	Capacity int `yaml:"capacity" json:"capacity"`

	// SlowFrame is a duration string ("16ms"). Empty means one frame interval.
	SlowFrame string `yaml:"slowFrame,omitempty" json:"slowFrame,omitempty"`

	// StreamBuffer is the per-subscriber buffer of the websocket stream.
	StreamBuffer int `yaml:"streamBuffer" json:"streamBuffer"`

	S3 S3Config `yaml:"s3" json:"s3"`
}

// S3Config configures trace upload. Upload is disabled without a bucket.
type S3Config struct {
	Bucket   string `yaml:"bucket" json:"bucket"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	def := framehook.DefaultConfig()
	recoverPanics := def.RecoverPanics
	return &Config{
		Loop: LoopConfig{
			FPS:           def.FPS,
			MaxIDAttempts: def.MaxIDAttempts,
			RecoverPanics: &recoverPanics,
		},
		Metrics: MetricsConfig{
			Namespace: def.MetricsNamespace,
		},
		Tracing: TracingConfig{
			TracerName:  def.TracerName,
			SampleEvery: def.TraceSampleEvery,
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Trace: TraceConfig{
			Capacity:     def.TraceCapacity,
			StreamBuffer: def.StreamBuffer,
			S3: S3Config{
				Prefix: DefaultS3Prefix,
			},
		},
	}
}

// Load reads configuration from dir. framehook.yaml wins over
// framehook.json; with neither present the defaults are returned.
func Load(dir string) (*Config, error) {
	for _, name := range []string{YAMLFileName, JSONFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return New(), nil
}

// LoadFile reads configuration from path. The format follows the extension:
// .json is parsed as JSON, anything else as YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("FH103").
			WithDetail("Could not read " + path).
			Wrap(err)
	}

	cfg := New()
	if filepath.Ext(path) == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
		if err == io.EOF {
			err = nil // empty file
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if err == io.EOF {
			err = nil
		}
	}
	if err != nil {
		return nil, errors.New("FH100").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file against the documented sections: loop, metrics, tracing, server, trace")
	}

	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// applyDefaults fills in values for keys present but left empty.
func (c *Config) applyDefaults() {
	def := New()
	if c.Loop.RecoverPanics == nil {
		c.Loop.RecoverPanics = def.Loop.RecoverPanics
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = def.Tracing.TracerName
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Trace.S3.Prefix == "" {
		c.Trace.S3.Prefix = def.Trace.S3.Prefix
	}
}

// Validate checks value ranges and returns a structured error.
func (c *Config) Validate() error {
	if c.Loop.FPS < 1 || c.Loop.FPS > framehook.MaxFPS {
		return errors.New("FH101").
			WithDetailf("loop.fps is %d", c.Loop.FPS).
			WithSuggestion(fmt.Sprintf("Use a frame rate between 1 and %d", framehook.MaxFPS))
	}
	if c.Loop.MaxIDAttempts < 1 {
		return errors.New("FH102").
			WithDetailf("loop.maxIdAttempts is %d", c.Loop.MaxIDAttempts).
			WithSuggestion("Set loop.maxIdAttempts to at least 1")
	}
	if c.Trace.Capacity < 1 {
		return errors.New("FH102").
			WithDetailf("trace.capacity is %d", c.Trace.Capacity).
			WithSuggestion("Set trace.capacity to at least 1")
	}
	if c.Trace.StreamBuffer < 1 {
		return errors.New("FH102").
			WithDetailf("trace.streamBuffer is %d", c.Trace.StreamBuffer).
			WithSuggestion("Set trace.streamBuffer to at least 1")
	}
	if _, err := c.slowFrame(); err != nil {
		return errors.New("FH102").
			WithDetailf("trace.slowFrame %q is not a duration", c.Trace.SlowFrame).
			WithSuggestion(`Use a Go duration such as "16ms"`).
			Wrap(err)
	}
	return nil
}

func (c *Config) slowFrame() (time.Duration, error) {
	if c.Trace.SlowFrame == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Trace.SlowFrame)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// ToRuntime converts the file configuration to a runtime Config. Fields
// with no file representation (Logger, Host, observers) are left zero.
func (c *Config) ToRuntime() (framehook.Config, error) {
	if err := c.Validate(); err != nil {
		return framehook.Config{}, err
	}
	slow, _ := c.slowFrame()

	cfg := framehook.DefaultConfig()
	cfg.FPS = c.Loop.FPS
	cfg.MaxIDAttempts = c.Loop.MaxIDAttempts
	if c.Loop.RecoverPanics != nil {
		cfg.RecoverPanics = *c.Loop.RecoverPanics
	}
	cfg.MetricsNamespace = c.Metrics.Namespace
	cfg.ProcessMetrics = c.Metrics.ProcessMetrics
	cfg.TracerName = c.Tracing.TracerName
	cfg.TraceSampleEvery = c.Tracing.SampleEvery
	cfg.TraceCapacity = c.Trace.Capacity
	cfg.SlowFrame = slow
	cfg.StreamBuffer = c.Trace.StreamBuffer
	return cfg, nil
}

// UploadEnabled reports whether traces are uploaded to S3 on exit.
func (c *Config) UploadEnabled() bool {
	return c.Trace.S3.Bucket != ""
}
