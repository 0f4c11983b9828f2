package host

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/framehook/pkg/frame"
)

// DefaultFPS is the refresh rate used when none is configured.
const DefaultFPS = 60

// IntervalForFPS returns the frame interval for fps frames per second.
// Non-positive values select DefaultFPS.
func IntervalForFPS(fps int) time.Duration {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// Ticker is a real-time frame.Host.
//
// Requested callbacks run once, serially, on a single goroutine on the tick
// after they were requested. The goroutine exits when a tick finds nothing
// pending and is restarted by the next RequestFrame.
type Ticker struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	next    frame.FrameToken
	pending map[frame.FrameToken]frame.FrameCallback
	order   []frame.FrameToken
	running bool
	closed  bool
	stop    chan struct{}
}

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithTickerLogger sets the logger. Default: slog.Default().
func WithTickerLogger(logger *slog.Logger) TickerOption {
	return func(t *Ticker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTicker creates a host that fires every interval.
// Non-positive intervals select IntervalForFPS(DefaultFPS).
func NewTicker(interval time.Duration, opts ...TickerOption) *Ticker {
	if interval <= 0 {
		interval = IntervalForFPS(DefaultFPS)
	}
	t := &Ticker{
		interval: interval,
		logger:   slog.Default(),
		pending:  make(map[frame.FrameToken]frame.FrameCallback),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the frame interval.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// RequestFrame implements frame.Host. After Close the callback never runs.
func (t *Ticker) RequestFrame(cb frame.FrameCallback) frame.FrameToken {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	token := t.next
	if t.closed {
		return token
	}
	t.pending[token] = cb
	t.order = append(t.order, token)
	if !t.running {
		t.running = true
		t.stop = make(chan struct{})
		go t.loop(t.stop)
	}
	return token
}

// CancelFrame implements frame.Host.
func (t *Ticker) CancelFrame(token frame.FrameToken) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, token)
}

// Pending returns the number of callbacks waiting for the next tick.
func (t *Ticker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close stops the tick goroutine and drops pending callbacks. It does not
// wait for a callback that is already running.
func (t *Ticker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.pending = make(map[frame.FrameToken]frame.FrameCallback)
	t.order = nil
	if t.running {
		close(t.stop)
		t.running = false
	}
}

func (t *Ticker) loop(stop <-chan struct{}) {
	t.logger.Debug("frame ticker started", "interval", t.interval)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			callbacks, ok := t.drain(stop)
			if !ok {
				t.logger.Debug("frame ticker idle")
				return
			}
			for _, cb := range callbacks {
				cb(now)
			}
		}
	}
}

// drain takes every pending callback. It reports false, and marks the
// ticker as not running, when nothing is pending.
func (t *Ticker) drain(stop <-chan struct{}) ([]frame.FrameCallback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-stop:
		return nil, false
	default:
	}

	callbacks := make([]frame.FrameCallback, 0, len(t.pending))
	for _, token := range t.order {
		if cb, ok := t.pending[token]; ok {
			callbacks = append(callbacks, cb)
		}
	}
	t.order = t.order[:0]
	clear(t.pending)

	if len(callbacks) == 0 {
		t.running = false
		return nil, false
	}
	return callbacks, true
}
