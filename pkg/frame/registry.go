package frame

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// entry is the type-erased view of a consumer the frame loop works with.
type entry interface {
	consumerID() string
	// setID is called once, with the registry lock held, by Registry.add.
	setID(id string)
	// evaluate runs one frame for the consumer. phase is updated as the
	// evaluation progresses so a recovered panic can be attributed.
	evaluate(phase *Phase) evalResult
	// info must be called with the registry lock held.
	info() ConsumerInfo
}

type evalResult struct {
	evaluated bool
	notified  bool
	calls     int
}

// ConsumerInfo is a read-only view of one registered consumer.
type ConsumerInfo struct {
	ID            string `json:"id"`
	Running       bool   `json:"running"`
	Listeners     int    `json:"listeners"`
	HasPrevious   bool   `json:"hasPrevious"`
	Evaluations   uint64 `json:"evaluations"`
	Notifications uint64 `json:"notifications"`
}

// Registry is the shared scheduling table plus the frame loop that drives it.
//
// A Registry is created once per application or runtime context. It holds at
// most one pending frame request on its Host: one while at least one
// consumer is attached, none once a frame finds the table empty.
type Registry struct {
	host          Host
	logger        *slog.Logger
	observer      Observer
	idSource      IDSource
	maxIDAttempts int
	recoverPanics bool
	onPanic       func(*PanicError)

	// notifyMu orders LoopChanged and ConsumersChanged. It is acquired
	// before mu is released so events are delivered in the order they
	// happened under mu.
	notifyMu sync.Mutex

	mu      sync.Mutex
	entries map[string]entry
	order   []string // attach order; frame evaluation order
	looping bool
	token   FrameToken
	frames  uint64
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the lifecycle observer. Use Observers to combine several.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithIDSource replaces the id source used for consumer and listener ids.
// Default: UUIDSource.
func WithIDSource(src IDSource) RegistryOption {
	return func(r *Registry) {
		if src != nil {
			r.idSource = src
		}
	}
}

// WithMaxIDAttempts bounds collision retries for id generation.
// Values <= 0 select DefaultMaxIDAttempts.
func WithMaxIDAttempts(n int) RegistryOption {
	return func(r *Registry) {
		r.maxIDAttempts = n
	}
}

// WithRecoverPanics controls per-consumer panic isolation. Default: true.
//
// When false, a panic in a tracked func, change func or listener escapes the
// frame callback and the rest of that frame's consumers are not evaluated.
// The next frame has already been requested at that point.
func WithRecoverPanics(recoverPanics bool) RegistryOption {
	return func(r *Registry) {
		r.recoverPanics = recoverPanics
	}
}

// WithPanicHandler sets a callback for recovered consumer panics. It runs
// on the host goroutine after the panic was logged.
func WithPanicHandler(fn func(*PanicError)) RegistryOption {
	return func(r *Registry) {
		r.onPanic = fn
	}
}

// NewRegistry creates an empty, idle registry driven by host.
func NewRegistry(host Host, opts ...RegistryOption) *Registry {
	r := &Registry{
		host:          host,
		logger:        slog.Default(),
		observer:      NopObserver{},
		idSource:      UUIDSource,
		maxIDAttempts: DefaultMaxIDAttempts,
		recoverPanics: true,
		entries:       make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Len returns the number of attached consumers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Looping reports whether a frame request is outstanding.
func (r *Registry) Looping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.looping
}

// Frames returns the number of frames that evaluated at least one consumer.
func (r *Registry) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Snapshot returns the state of every consumer in evaluation order.
func (r *Registry) Snapshot() []ConsumerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConsumerInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].info())
	}
	return out
}

// Lookup returns the state of one consumer.
func (r *Registry) Lookup(id string) (ConsumerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ConsumerInfo{}, false
	}
	return e.info(), true
}

// add registers c under a fresh id and starts the loop if it was idle.
func (r *Registry) add(c entry) error {
	r.mu.Lock()
	id, err := r.generateConsumerID()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	c.setID(id)
	r.entries[id] = c
	r.order = append(r.order, id)
	n := len(r.order)
	started := false
	if !r.looping {
		r.token = r.host.RequestFrame(r.runFrame)
		r.looping = true
		started = true
	}
	r.handOff()
	defer r.notifyMu.Unlock()

	r.logger.Debug("consumer attached", "consumer", id, "consumers", n)
	r.observer.ConsumersChanged(n)
	if started {
		r.logger.Debug("frame loop started")
		r.observer.LoopChanged(true)
	}
	return nil
}

// handOff trades mu for notifyMu. Must be called with mu held; the caller
// delivers its state events and then releases notifyMu.
func (r *Registry) handOff() {
	r.notifyMu.Lock()
	r.mu.Unlock()
}

// remove deletes id from the table. Must be called with r.mu held.
// Returns false when id was not registered.
func (r *Registry) remove(id string) bool {
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// runFrame is the single frame callback shared by all consumers.
func (r *Registry) runFrame(now time.Time) {
	r.mu.Lock()
	if len(r.order) == 0 {
		r.host.CancelFrame(r.token)
		r.looping = false
		r.handOff()
		defer r.notifyMu.Unlock()
		r.logger.Debug("frame loop idle")
		r.observer.LoopChanged(false)
		return
	}

	// Keep the cadence even if evaluation below panics.
	r.token = r.host.RequestFrame(r.runFrame)
	r.frames++
	info := FrameInfo{Frame: r.frames, Time: now, Consumers: len(r.order)}
	batch := make([]entry, 0, len(r.order))
	for _, id := range r.order {
		batch = append(batch, r.entries[id])
	}
	r.mu.Unlock()

	ctx := r.observer.FrameStarted(context.Background(), info)
	stats := FrameStats{FrameInfo: info}
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		r.observer.FrameFinished(ctx, stats)
	}()

	for _, e := range batch {
		res, perr := r.evaluate(e, info.Frame)
		if perr != nil {
			stats.Failures++
			r.reportPanic(ctx, perr)
			continue
		}
		if !res.evaluated {
			stats.Skipped++
			continue
		}
		stats.Evaluated++
		if res.notified {
			stats.Notified++
		}
		stats.ListenerCalls += res.calls
	}
}

// evaluate runs e, recovering a panic when the registry isolates consumers.
func (r *Registry) evaluate(e entry, frameNo uint64) (res evalResult, perr *PanicError) {
	var phase Phase
	if r.recoverPanics {
		defer func() {
			if v := recover(); v != nil {
				perr = newPanicError(e.consumerID(), phase, frameNo, v)
			}
		}()
	}
	return e.evaluate(&phase), nil
}

func (r *Registry) reportPanic(ctx context.Context, perr *PanicError) {
	r.logger.Error("consumer panicked",
		"consumer", perr.ConsumerID,
		"phase", perr.Phase.String(),
		"frame", perr.Frame,
		"error", perr.Value,
	)
	r.observer.ConsumerFailed(ctx, perr)
	if r.onPanic != nil {
		r.onPanic(perr)
	}
}
