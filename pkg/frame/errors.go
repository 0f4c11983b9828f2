package frame

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// ErrDetached is returned by Handle.AddListener after the handle was closed.
// Listeners cannot be attached to a consumer that left the registry.
var ErrDetached = errors.New("frame: consumer is detached")

// ErrIDExhausted is returned when the id source kept producing ids that were
// already taken for the configured number of attempts.
var ErrIDExhausted = errors.New("frame: could not generate a unique id")

// ErrPredicateType is returned by Attach when a ShouldInvoke option was built
// for a different value type than the tracked function returns.
var ErrPredicateType = errors.New("frame: change func does not match tracked type")

// ErrNilTrackedFunc is returned by Attach when the tracked function is nil.
var ErrNilTrackedFunc = errors.New("frame: tracked func is nil")

// ErrNilListener is returned by Handle.AddListener for a nil listener.
var ErrNilListener = errors.New("frame: listener is nil")

// Phase names the part of a consumer evaluation that was running.
type Phase uint8

const (
	PhaseTracked Phase = iota + 1
	PhaseChange
	PhaseListener
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseTracked:
		return "tracked"
	case PhaseChange:
		return "change"
	case PhaseListener:
		return "listener"
	default:
		return "unknown"
	}
}

// PanicError describes a panic recovered while evaluating one consumer.
type PanicError struct {
	// ConsumerID is the consumer whose evaluation panicked.
	ConsumerID string
	// Phase is the step that panicked.
	Phase Phase
	// Frame is the frame number the panic happened in.
	Frame uint64
	// Value is the value passed to panic().
	Value any
	// Stack is the goroutine stack at the time of recovery.
	Stack string
	// Timestamp is when the panic was recovered.
	Timestamp time.Time
}

func newPanicError(consumerID string, phase Phase, frame uint64, v any) *PanicError {
	return &PanicError{
		ConsumerID: consumerID,
		Phase:      phase,
		Frame:      frame,
		Value:      v,
		Stack:      string(debug.Stack()),
		Timestamp:  time.Now(),
	}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("frame: panic in %s of consumer %s (frame %d): %v", e.Phase, e.ConsumerID, e.Frame, e.Value)
}

// Unwrap returns the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
