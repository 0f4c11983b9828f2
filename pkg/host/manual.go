package host

import (
	"sync"
	"time"

	"github.com/vango-dev/framehook/pkg/frame"
)

// DefaultManualInterval is how far a Manual host's clock moves per step.
const DefaultManualInterval = 16 * time.Millisecond

type request struct {
	token frame.FrameToken
	cb    frame.FrameCallback
}

// Manual is a frame.Host that runs frames only when Step or Advance is
// called. Its clock starts at a fixed epoch and moves one interval per step.
// All methods are safe for concurrent use; callbacks run on the caller's
// goroutine.
type Manual struct {
	mu        sync.Mutex
	interval  time.Duration
	now       time.Time
	next      frame.FrameToken
	pending   []request
	requested int
	cancelled []frame.FrameToken
}

// NewManual returns a Manual host stepping DefaultManualInterval per frame.
func NewManual() *Manual {
	return NewManualInterval(DefaultManualInterval)
}

// NewManualInterval returns a Manual host stepping interval per frame.
func NewManualInterval(interval time.Duration) *Manual {
	return &Manual{
		interval: interval,
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// RequestFrame implements frame.Host.
func (m *Manual) RequestFrame(cb frame.FrameCallback) frame.FrameToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.requested++
	m.pending = append(m.pending, request{token: m.next, cb: cb})
	return m.next
}

// CancelFrame implements frame.Host. Every call is recorded, including
// cancellations of tokens that already ran.
func (m *Manual) CancelFrame(token frame.FrameToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, token)
	for i, req := range m.pending {
		if req.token == token {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Step advances the clock by one interval and runs the callbacks that were
// pending when it was called. Callbacks requested while stepping wait for
// the next step. It returns the number of callbacks run.
func (m *Manual) Step() int {
	m.mu.Lock()
	m.now = m.now.Add(m.interval)
	now := m.now
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, req := range batch {
		req.cb(now)
	}
	return len(batch)
}

// Advance calls Step n times and returns the total callbacks run.
func (m *Manual) Advance(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += m.Step()
	}
	return total
}

// Now returns the host clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of callbacks waiting for the next step.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Requested returns how many frames were requested in total.
func (m *Manual) Requested() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requested
}

// Cancelled returns the tokens passed to CancelFrame, in call order.
func (m *Manual) Cancelled() []frame.FrameToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]frame.FrameToken, len(m.cancelled))
	copy(out, m.cancelled)
	return out
}
