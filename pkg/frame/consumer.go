package frame

import (
	"fmt"
	"reflect"
)

// TrackedFunc produces the value a consumer tracks. It is called once per
// frame while the consumer is running.
type TrackedFunc[T any] func() T

// Previous holds the value a tracked func produced on the last evaluated
// frame. Valid is false until the first evaluation.
type Previous[T any] struct {
	Value T
	Valid bool
}

// Listener receives a consumer's new value together with the previous one.
type Listener[T any] func(value T, previous Previous[T])

// ChangeFunc decides whether listeners run for a newly produced value.
type ChangeFunc[T any] func(next T, previous Previous[T]) bool

// ValueChanged is the default ChangeFunc. It approves the first value and
// every value that differs from the previous one.
//
// Values of comparable dynamic type are compared with ==. Slices, maps and
// funcs cannot be compared and always count as changed.
func ValueChanged[T any](next T, previous Previous[T]) bool {
	if !previous.Valid {
		return true
	}
	return !sameValue(next, previous.Value)
}

func sameValue(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	// Structs and arrays of interfaces can hold incomparable values.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// AttachOption configures a consumer at attach time.
type AttachOption interface {
	applyAttach(cfg *attachConfig)
}

type attachConfig struct {
	autoStart bool
	change    any // ChangeFunc[T], checked by Attach
}

type attachOptionFunc func(*attachConfig)

func (f attachOptionFunc) applyAttach(cfg *attachConfig) { f(cfg) }

// AutoStart sets whether the consumer runs from its first frame.
// Default: true. Read once by Attach; use Start and Stop afterwards.
func AutoStart(autoStart bool) AttachOption {
	return attachOptionFunc(func(cfg *attachConfig) {
		cfg.autoStart = autoStart
	})
}

// ShouldInvoke replaces ValueChanged with fn. T must match the tracked
// func's type or Attach fails with ErrPredicateType.
func ShouldInvoke[T any](fn ChangeFunc[T]) AttachOption {
	return attachOptionFunc(func(cfg *attachConfig) {
		cfg.change = fn
	})
}

// consumer is one registry entry. All mutable fields are guarded by the
// owning registry's lock.
type consumer[T any] struct {
	reg *Registry
	id  string

	fn            TrackedFunc[T]
	change        ChangeFunc[T]
	listeners     map[string]Listener[T]
	listenerOrder []string
	previous      Previous[T]
	running       bool
	detached      bool

	evaluations   uint64
	notifications uint64
}

func (c *consumer[T]) consumerID() string { return c.id }

func (c *consumer[T]) setID(id string) { c.id = id }

func (c *consumer[T]) info() ConsumerInfo {
	return ConsumerInfo{
		ID:            c.id,
		Running:       c.running,
		Listeners:     len(c.listenerOrder),
		HasPrevious:   c.previous.Valid,
		Evaluations:   c.evaluations,
		Notifications: c.notifications,
	}
}

func (c *consumer[T]) evaluate(phase *Phase) evalResult {
	mu := &c.reg.mu

	mu.Lock()
	if c.detached || !c.running {
		mu.Unlock()
		return evalResult{}
	}
	fn, change, prev := c.fn, c.change, c.previous
	mu.Unlock()

	*phase = PhaseTracked
	next := fn()

	*phase = PhaseChange
	fire := change(next, prev)

	res := evalResult{evaluated: true, notified: fire}
	if fire {
		mu.Lock()
		listeners := make([]Listener[T], 0, len(c.listenerOrder))
		for _, id := range c.listenerOrder {
			listeners = append(listeners, c.listeners[id])
		}
		mu.Unlock()

		*phase = PhaseListener
		for _, l := range listeners {
			l(next, prev)
			res.calls++
		}
	}

	// The store always advances, whether or not listeners ran.
	mu.Lock()
	if !c.detached {
		c.previous = Previous[T]{Value: next, Valid: true}
	}
	c.evaluations++
	if fire {
		c.notifications++
	}
	mu.Unlock()
	return res
}

// Handle is the binding between one caller and its registry entry.
//
// The caller owns the handle and must call Close exactly once when it no
// longer needs frame updates. All methods are safe for concurrent use.
type Handle[T any] struct {
	c *consumer[T]
}

// Attach registers fn as a new consumer of r and starts the frame loop if
// it was idle. The consumer is running unless AutoStart(false) is given.
func Attach[T any](r *Registry, fn TrackedFunc[T], opts ...AttachOption) (*Handle[T], error) {
	if fn == nil {
		return nil, ErrNilTrackedFunc
	}

	cfg := attachConfig{autoStart: true}
	for _, opt := range opts {
		opt.applyAttach(&cfg)
	}

	change := ChangeFunc[T](ValueChanged[T])
	if cfg.change != nil {
		custom, ok := cfg.change.(ChangeFunc[T])
		if !ok {
			var zero T
			return nil, fmt.Errorf("%w: %T for a %T consumer", ErrPredicateType, cfg.change, zero)
		}
		if custom != nil {
			change = custom
		}
	}

	c := &consumer[T]{
		reg:       r,
		fn:        fn,
		change:    change,
		listeners: make(map[string]Listener[T]),
		running:   cfg.autoStart,
	}
	if err := r.add(c); err != nil {
		return nil, err
	}
	return &Handle[T]{c: c}, nil
}

// AttachFunc registers fn to run on every frame without listeners. The
// returned handle is used to Stop, Start and Close it.
func AttachFunc(r *Registry, fn func(), opts ...AttachOption) (*Handle[struct{}], error) {
	if fn == nil {
		return nil, ErrNilTrackedFunc
	}
	return Attach(r, func() struct{} {
		fn()
		return struct{}{}
	}, opts...)
}

// ID returns the consumer id assigned at attach time.
func (h *Handle[T]) ID() string {
	return h.c.id
}

// Update replaces the tracked func. Listeners and the previous value are
// kept. A nil fn is ignored.
func (h *Handle[T]) Update(fn TrackedFunc[T]) {
	if fn == nil {
		return
	}
	h.c.reg.mu.Lock()
	defer h.c.reg.mu.Unlock()
	if !h.c.detached {
		h.c.fn = fn
	}
}

// UpdatePredicate replaces the ChangeFunc. A nil fn keeps the current one;
// there is no way back to ValueChanged other than passing it explicitly.
func (h *Handle[T]) UpdatePredicate(fn ChangeFunc[T]) {
	if fn == nil {
		return
	}
	h.c.reg.mu.Lock()
	defer h.c.reg.mu.Unlock()
	if !h.c.detached {
		h.c.change = fn
	}
}

// AddListener registers l and returns its id for RemoveListener.
// It returns ErrDetached once the handle was closed.
func (h *Handle[T]) AddListener(l Listener[T]) (string, error) {
	if l == nil {
		return "", ErrNilListener
	}
	c := h.c
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	if c.detached {
		return "", fmt.Errorf("%w: %s", ErrDetached, c.id)
	}
	id, err := c.generateListenerID()
	if err != nil {
		return "", err
	}
	c.listeners[id] = l
	c.listenerOrder = append(c.listenerOrder, id)
	return id, nil
}

// RemoveListener unregisters a listener. Unknown ids and closed handles are
// ignored.
func (h *Handle[T]) RemoveListener(id string) {
	c := h.c
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()
	if c.detached {
		return
	}
	if _, ok := c.listeners[id]; !ok {
		return
	}
	delete(c.listeners, id)
	for i, lid := range c.listenerOrder {
		if lid == id {
			c.listenerOrder = append(c.listenerOrder[:i], c.listenerOrder[i+1:]...)
			break
		}
	}
}

// Stop pauses evaluation. The consumer stays registered and its previous
// value is frozen until Start.
func (h *Handle[T]) Stop() {
	h.setRunning(false)
}

// Start resumes evaluation from the frozen previous value.
func (h *Handle[T]) Start() {
	h.setRunning(true)
}

func (h *Handle[T]) setRunning(running bool) {
	h.c.reg.mu.Lock()
	defer h.c.reg.mu.Unlock()
	if !h.c.detached {
		h.c.running = running
	}
}

// Running reports whether the consumer is evaluated on each frame.
// It is false once the handle is closed.
func (h *Handle[T]) Running() bool {
	h.c.reg.mu.Lock()
	defer h.c.reg.mu.Unlock()
	return h.c.running && !h.c.detached
}

// Closed reports whether Close was called.
func (h *Handle[T]) Closed() bool {
	h.c.reg.mu.Lock()
	defer h.c.reg.mu.Unlock()
	return h.c.detached
}

// Close removes the consumer from the registry. Later frames neither
// evaluate it nor call its listeners. Close is idempotent.
func (h *Handle[T]) Close() {
	c := h.c
	r := c.reg
	r.mu.Lock()
	if c.detached {
		r.mu.Unlock()
		return
	}
	c.detached = true
	r.remove(c.id)
	n := len(r.order)
	r.handOff()
	defer r.notifyMu.Unlock()

	r.logger.Debug("consumer detached", "consumer", c.id, "consumers", n)
	r.observer.ConsumersChanged(n)
}
