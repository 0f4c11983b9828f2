// Package broadcast fans finished-frame stats out to subscribers without
// ever blocking the frame loop.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/framehook/pkg/frame"
)

// DefaultBuffer is the per-subscriber channel size.
const DefaultBuffer = 64

// Broadcaster is a frame.Observer that publishes every FrameStats to its
// subscribers. A subscriber whose buffer is full misses that frame.
type Broadcaster struct {
	frame.NopObserver

	buffer int

	mu     sync.RWMutex
	subs   map[uint64]chan frame.FrameStats
	nextID uint64

	published atomic.Uint64
	dropped   atomic.Uint64
}

var _ frame.Observer = (*Broadcaster)(nil)

// New creates a broadcaster with buffer-sized subscriber channels.
// Non-positive values select DefaultBuffer.
func New(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		buffer: buffer,
		subs:   make(map[uint64]chan frame.FrameStats),
	}
}

// Subscribe returns a channel of frame stats and a func that unsubscribes
// and closes the channel. The cancel func is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan frame.FrameStats, func()) {
	ch := make(chan frame.FrameStats, b.buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// FrameFinished implements frame.Observer.
func (b *Broadcaster) FrameFinished(_ context.Context, stats frame.FrameStats) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- stats:
			b.published.Add(1)
		default:
			b.dropped.Add(1)
		}
	}
}

// Published returns the number of deliveries made.
func (b *Broadcaster) Published() uint64 {
	return b.published.Load()
}

// Dropped returns the number of deliveries skipped for full subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
