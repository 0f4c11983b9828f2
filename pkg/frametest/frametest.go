package frametest

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/vango-dev/framehook/pkg/frame"
	"github.com/vango-dev/framehook/pkg/host"
)

// Env is a registry driven by a manual host.
type Env struct {
	Registry *frame.Registry
	Host     *host.Manual
}

// EnvBuilder builds an Env.
type EnvBuilder struct {
	t          testing.TB
	opts       []frame.RegistryOption
	observers  []frame.Observer
	logger     *slog.Logger
	allowLeaks bool
}

// NewEnv starts building a test environment. Logs are discarded unless
// WithLogger is used.
func NewEnv(t testing.TB) *EnvBuilder {
	return &EnvBuilder{
		t:      t,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the registry logger.
func (b *EnvBuilder) WithLogger(logger *slog.Logger) *EnvBuilder {
	b.logger = logger
	return b
}

// WithObserver adds an observer. May be called repeatedly.
func (b *EnvBuilder) WithObserver(o frame.Observer) *EnvBuilder {
	b.observers = append(b.observers, o)
	return b
}

// WithRegistryOptions appends registry options, applied after the
// builder's own.
func (b *EnvBuilder) WithRegistryOptions(opts ...frame.RegistryOption) *EnvBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// AllowLeaks disables the end-of-test check for attached consumers.
func (b *EnvBuilder) AllowLeaks() *EnvBuilder {
	b.allowLeaks = true
	return b
}

// Build creates the Env.
func (b *EnvBuilder) Build() *Env {
	b.t.Helper()
	h := host.NewManual()
	opts := []frame.RegistryOption{frame.WithLogger(b.logger)}
	if len(b.observers) > 0 {
		opts = append(opts, frame.WithObserver(frame.Observers(b.observers...)))
	}
	opts = append(opts, b.opts...)
	env := &Env{Registry: frame.NewRegistry(h, opts...), Host: h}

	if !b.allowLeaks {
		b.t.Cleanup(func() {
			if n := env.Registry.Len(); n > 0 {
				b.t.Errorf("frametest: %d consumer(s) still attached at end of test", n)
			}
		})
	}
	return env
}

// MustAttach attaches fn and fails the test on error. The handle is closed
// when the test ends.
func MustAttach[T any](t testing.TB, r *frame.Registry, fn frame.TrackedFunc[T], opts ...frame.AttachOption) *frame.Handle[T] {
	t.Helper()
	h, err := frame.Attach(r, fn, opts...)
	if err != nil {
		t.Fatalf("frametest: attach: %v", err)
	}
	// Cleanups run last in, first out: this one precedes Build's leak check.
	t.Cleanup(h.Close)
	return h
}

// MustListen adds l to h and fails the test on error. It returns the
// listener id.
func MustListen[T any](t testing.TB, h *frame.Handle[T], l frame.Listener[T]) string {
	t.Helper()
	id, err := h.AddListener(l)
	if err != nil {
		t.Fatalf("frametest: add listener: %v", err)
	}
	return id
}

// Call is one recorded listener invocation.
type Call[T any] struct {
	Value    T
	Previous frame.Previous[T]
}

// Calls records listener invocations. Safe for concurrent use.
type Calls[T any] struct {
	mu    sync.Mutex
	calls []Call[T]
}

// Listener returns a frame.Listener appending to c.
func (c *Calls[T]) Listener() frame.Listener[T] {
	return func(v T, prev frame.Previous[T]) {
		c.mu.Lock()
		c.calls = append(c.calls, Call[T]{Value: v, Previous: prev})
		c.mu.Unlock()
	}
}

// All returns a copy of the recorded calls.
func (c *Calls[T]) All() []Call[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// Values returns the recorded values in call order.
func (c *Calls[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.Value
	}
	return out
}

// Len returns the number of recorded calls.
func (c *Calls[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Reset drops the recorded calls.
func (c *Calls[T]) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

// Collect adds a recording listener to h and fails the test on error.
func Collect[T any](t testing.TB, h *frame.Handle[T]) *Calls[T] {
	t.Helper()
	c := &Calls[T]{}
	if _, err := h.AddListener(c.Listener()); err != nil {
		t.Fatalf("frametest: add listener: %v", err)
	}
	return c
}

// ExpectValues asserts that the recorded values equal want, in order.
func ExpectValues[T comparable](t testing.TB, c *Calls[T], want ...T) {
	t.Helper()
	got := c.Values()
	if !slices.Equal(got, want) {
		t.Errorf("listener values = %v, want %v", got, want)
	}
}

// ExpectNoCalls asserts that no listener call was recorded.
func ExpectNoCalls[T any](t testing.TB, c *Calls[T]) {
	t.Helper()
	if n := c.Len(); n != 0 {
		t.Errorf("expected no listener calls, got %d: %v", n, c.Values())
	}
}
