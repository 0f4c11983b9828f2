// Package recorder keeps a rolling timeline of recent frames and exports it.
package recorder

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/vango-dev/framehook/pkg/frame"
)

const (
	// DefaultCapacity is the number of frames kept by default.
	DefaultCapacity = 240
	// DefaultThreshold marks frames slower than one 60 fps interval.
	DefaultThreshold = 16667 * time.Microsecond
)

// Sample is one recorded frame.
type Sample struct {
	Frame         uint64  `json:"frame"`
	Timestamp     int64   `json:"ts"`
	FrameMs       float64 `json:"frameMs"`
	Consumers     int     `json:"consumers"`
	Evaluated     int     `json:"evaluated"`
	Skipped       int     `json:"skipped"`
	Notified      int     `json:"notified"`
	ListenerCalls int     `json:"listenerCalls"`
	Failures      int     `json:"failures"`
}

// Timeline is the exported shape of a recorder.
type Timeline struct {
	Samples       []Sample `json:"samples"`
	DroppedFrames int      `json:"droppedFrames"`
	ThresholdMs   float64  `json:"thresholdMs"`
}

// Recorder is a frame.Observer storing recent frames in a ring buffer.
type Recorder struct {
	frame.NopObserver

	mu        sync.RWMutex
	samples   []Sample
	index     int
	count     int
	dropped   int
	threshold time.Duration
}

var _ frame.Observer = (*Recorder)(nil)

// New creates a recorder keeping capacity frames. Frames slower than
// threshold count as dropped. Non-positive arguments select the defaults.
func New(capacity int, threshold time.Duration) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Recorder{
		samples:   make([]Sample, capacity),
		threshold: threshold,
	}
}

// FrameFinished implements frame.Observer.
func (r *Recorder) FrameFinished(_ context.Context, stats frame.FrameStats) {
	s := Sample{
		Frame:         stats.Frame,
		Timestamp:     stats.Time.UnixMilli(),
		FrameMs:       float64(stats.Duration) / float64(time.Millisecond),
		Consumers:     stats.Consumers,
		Evaluated:     stats.Evaluated,
		Skipped:       stats.Skipped,
		Notified:      stats.Notified,
		ListenerCalls: stats.ListenerCalls,
		Failures:      stats.Failures,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[r.index] = s
	r.index = (r.index + 1) % len(r.samples)
	if r.count < len(r.samples) {
		r.count++
	}
	if stats.Duration > r.threshold {
		r.dropped++
	}
}

// Samples returns the recorded frames, oldest first.
func (r *Recorder) Samples() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sample, 0, r.count)
	start := (r.index - r.count + len(r.samples)) % len(r.samples)
	for i := 0; i < r.count; i++ {
		out = append(out, r.samples[(start+i)%len(r.samples)])
	}
	return out
}

// Dropped returns how many recorded frames exceeded the threshold. It keeps
// counting after old samples are overwritten.
func (r *Recorder) Dropped() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}

// Timeline returns the samples with the drop summary.
func (r *Recorder) Timeline() Timeline {
	samples := r.Samples()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Timeline{
		Samples:       samples,
		DroppedFrames: r.dropped,
		ThresholdMs:   float64(r.threshold) / float64(time.Millisecond),
	}
}

// WriteJSON writes the timeline as JSON.
func (r *Recorder) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(r.Timeline())
}

// Reset discards all samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.samples)
	r.index = 0
	r.count = 0
	r.dropped = 0
}
