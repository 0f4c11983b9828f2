package frame

import (
	"context"
	"time"
)

// FrameInfo describes a frame as it starts.
type FrameInfo struct {
	// Frame is the 1-based frame number for this registry.
	Frame uint64 `json:"frame"`
	// Time is the timestamp the host passed to the frame callback.
	Time time.Time `json:"time"`
	// Consumers is the number of registered consumers at frame start.
	Consumers int `json:"consumers"`
}

// FrameStats summarizes a finished frame.
type FrameStats struct {
	FrameInfo

	// Duration is the wall time spent evaluating consumers.
	Duration time.Duration `json:"duration"`
	// Evaluated counts consumers whose tracked func ran.
	Evaluated int `json:"evaluated"`
	// Skipped counts stopped or closed consumers.
	Skipped int `json:"skipped"`
	// Notified counts consumers whose ChangeFunc approved the new value.
	Notified int `json:"notified"`
	// ListenerCalls counts individual listener invocations.
	ListenerCalls int `json:"listenerCalls"`
	// Failures counts consumers whose evaluation panicked.
	Failures int `json:"failures"`
}

// Observer receives lifecycle notifications from a Registry.
//
// Methods are called outside the registry lock, from the goroutine that
// caused the event: the host goroutine for frame events, the caller of
// Attach or Close for consumer count changes.
//
// LoopChanged and ConsumersChanged are delivered one at a time in the order
// the registry changed state, so the last call always matches the registry.
// While one of them runs, other Attach and Close calls and the idle
// transition wait. They must not call back into the Registry or its
// handles.
type Observer interface {
	// LoopChanged reports a transition between idle and looping.
	LoopChanged(looping bool)
	// ConsumersChanged reports the consumer count after an attach or close.
	ConsumersChanged(n int)
	// FrameStarted is called before consumers are evaluated. The returned
	// context is passed to the other frame-scoped methods.
	FrameStarted(ctx context.Context, info FrameInfo) context.Context
	// FrameFinished is called after all consumers of the frame ran.
	FrameFinished(ctx context.Context, stats FrameStats)
	// ConsumerFailed is called for each recovered consumer panic.
	ConsumerFailed(ctx context.Context, err *PanicError)
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// the methods you need.
type NopObserver struct{}

func (NopObserver) LoopChanged(bool) {}

func (NopObserver) ConsumersChanged(int) {}

func (NopObserver) FrameStarted(ctx context.Context, _ FrameInfo) context.Context {
	return ctx
}

func (NopObserver) FrameFinished(context.Context, FrameStats) {}

func (NopObserver) ConsumerFailed(context.Context, *PanicError) {}

// Observers returns an Observer that forwards to each of obs in order.
// Nil entries are skipped.
func Observers(obs ...Observer) Observer {
	list := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	if len(list) == 1 {
		return list[0]
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) LoopChanged(looping bool) {
	for _, o := range m {
		o.LoopChanged(looping)
	}
}

func (m multiObserver) ConsumersChanged(n int) {
	for _, o := range m {
		o.ConsumersChanged(n)
	}
}

func (m multiObserver) FrameStarted(ctx context.Context, info FrameInfo) context.Context {
	for _, o := range m {
		ctx = o.FrameStarted(ctx, info)
	}
	return ctx
}

func (m multiObserver) FrameFinished(ctx context.Context, stats FrameStats) {
	for _, o := range m {
		o.FrameFinished(ctx, stats)
	}
}

func (m multiObserver) ConsumerFailed(ctx context.Context, err *PanicError) {
	for _, o := range m {
		o.ConsumerFailed(ctx, err)
	}
}
