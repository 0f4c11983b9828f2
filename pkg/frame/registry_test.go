package frame_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/framehook/pkg/frame"
	"github.com/vango-dev/framehook/pkg/frametest"
	"github.com/vango-dev/framehook/pkg/host"
)

func newTestRegistry(t *testing.T, opts ...frame.RegistryOption) (*frame.Registry, *host.Manual) {
	t.Helper()
	h := host.NewManual()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]frame.RegistryOption{frame.WithLogger(logger)}, opts...)
	return frame.NewRegistry(h, opts...), h
}

// counterFn returns a tracked func counting its own invocations.
func counterFn(counter *int) frame.TrackedFunc[int] {
	return func() int {
		*counter++
		return *counter
	}
}

func squareInto(result *int) frame.Listener[int] {
	return func(v int, _ frame.Previous[int]) {
		*result = v * v
	}
}

func TestListenersRunUntilClose(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter, result int
	handle, err := frame.Attach(reg, counterFn(&counter))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := handle.AddListener(squareInto(&result)); err != nil {
		t.Fatalf("AddListener: %v", err)
	}

	if counter != 0 || result != 0 {
		t.Fatalf("nothing should run before the first frame, got counter=%d result=%d", counter, result)
	}

	h.Step()
	if counter != 1 || result != 1 {
		t.Errorf("after 1 frame: counter=%d result=%d, want 1 1", counter, result)
	}

	h.Step()
	if counter != 2 || result != 4 {
		t.Errorf("after 2 frames: counter=%d result=%d, want 2 4", counter, result)
	}

	h.Advance(3)
	if counter != 5 || result != 25 {
		t.Errorf("after 5 frames: counter=%d result=%d, want 5 25", counter, result)
	}

	handle.Close()
	h.Advance(25)

	if counter != 5 || result != 25 {
		t.Errorf("after close: counter=%d result=%d, want 5 25", counter, result)
	}
}

func TestRemovedListenerStopsReceiving(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter, result int
	handle, err := frame.Attach(reg, counterFn(&counter))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer handle.Close()

	id, err := handle.AddListener(squareInto(&result))
	if err != nil {
		t.Fatalf("AddListener: %v", err)
	}

	h.Advance(5)
	if counter != 5 || result != 25 {
		t.Fatalf("counter=%d result=%d, want 5 25", counter, result)
	}

	handle.RemoveListener(id)
	h.Advance(25)

	if counter != 30 {
		t.Errorf("tracked func should keep running: counter=%d, want 30", counter)
	}
	if result != 25 {
		t.Errorf("removed listener ran: result=%d, want 25", result)
	}
}

func TestDefaultPredicateFiresOnTransitions(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter, result int
	calls := 0
	handle, err := frame.Attach(reg, func() int {
		counter++
		return counter / 2
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer handle.Close()

	frametest.MustListen(t, handle, func(v int, _ frame.Previous[int]) {
		calls++
		result = v * v
	})

	steps := []struct {
		counter, result, calls int
	}{
		{1, 0, 1}, // value 0, first value always fires
		{2, 1, 2}, // 1
		{3, 1, 2}, // 1 again
		{4, 4, 3}, // 2
		{5, 4, 3}, // 2 again
		{6, 9, 4}, // 3
	}
	for i, want := range steps {
		h.Step()
		if counter != want.counter || result != want.result || calls != want.calls {
			t.Errorf("frame %d: counter=%d result=%d calls=%d, want %d %d %d",
				i+1, counter, result, calls, want.counter, want.result, want.calls)
		}
	}
}

func TestDefaultPredicateEdgeSequence(t *testing.T) {
	env := frametest.NewEnv(t).Build()

	values := []int{0, 0, 1, 1, 2, 3, 3}
	i := 0
	handle := frametest.MustAttach(t, env.Registry, func() int {
		v := values[i]
		i++
		return v
	})
	calls := frametest.Collect(t, handle)

	env.Host.Advance(len(values))

	frametest.ExpectValues(t, calls, 0, 1, 2, 3)
}

func TestDefaultPredicateComparesStructs(t *testing.T) {
	type point struct{ X, Y int }
	env := frametest.NewEnv(t).Build()

	points := []point{{0, 0}, {0, 0}, {1, 0}, {1, 0}, {1, 2}}
	i := 0
	handle := frametest.MustAttach(t, env.Registry, func() point {
		p := points[i]
		i++
		return p
	})
	calls := frametest.Collect(t, handle)

	env.Host.Advance(len(points))

	frametest.ExpectValues(t, calls, point{0, 0}, point{1, 0}, point{1, 2})
}

func TestListenerReceivesPreviousValue(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter int
	handle := frametest.MustAttach(t, reg, counterFn(&counter))
	defer handle.Close()

	var prevs []frame.Previous[int]
	frametest.MustListen(t, handle, func(_ int, prev frame.Previous[int]) {
		prevs = append(prevs, prev)
	})

	h.Advance(3)

	want := []frame.Previous[int]{{}, {Value: 1, Valid: true}, {Value: 2, Valid: true}}
	if len(prevs) != len(want) {
		t.Fatalf("got %d listener calls, want %d", len(prevs), len(want))
	}
	for i := range want {
		if prevs[i] != want[i] {
			t.Errorf("call %d previous = %+v, want %+v", i, prevs[i], want[i])
		}
	}
}

func TestCustomPredicate(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter int
	handle, err := frame.Attach(reg, counterFn(&counter),
		frame.ShouldInvoke(func(next int, prev frame.Previous[int]) bool {
			return prev.Valid && prev.Value == 2 && next == 3
		}),
	)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer handle.Close()

	var seen []int
	frametest.MustListen(t, handle, func(v int, _ frame.Previous[int]) {
		seen = append(seen, v)
	})

	h.Advance(10)

	if len(seen) != 1 || seen[0] != 3 {
		t.Errorf("listener values = %v, want [3]", seen)
	}
}

func TestPredicateSeesOldValueButStoreAdvances(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter int
	var seenPrev []int
	handle := frametest.MustAttach(t, reg, counterFn(&counter),
		frame.ShouldInvoke(func(_ int, prev frame.Previous[int]) bool {
			seenPrev = append(seenPrev, prev.Value)
			return false
		}),
	)
	defer handle.Close()

	h.Advance(4)

	want := []int{0, 1, 2, 3}
	for i := range want {
		if seenPrev[i] != want[i] {
			t.Fatalf("predicate previous values = %v, want %v", seenPrev, want)
		}
	}
}

func TestUpdatePredicate(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter int
	handle := frametest.MustAttach(t, reg, counterFn(&counter))
	defer handle.Close()

	calls := 0
	frametest.MustListen(t, handle, func(int, frame.Previous[int]) { calls++ })

	h.Advance(2)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	handle.UpdatePredicate(func(int, frame.Previous[int]) bool { return false })
	h.Advance(2)
	if calls != 2 {
		t.Fatalf("calls after never-predicate = %d, want 2", calls)
	}

	// nil keeps the current predicate rather than restoring the default.
	handle.UpdatePredicate(nil)
	h.Advance(2)
	if calls != 2 {
		t.Errorf("calls after nil update = %d, want 2", calls)
	}
}

func TestUpdateTrackedFuncKeepsState(t *testing.T) {
	reg, h := newTestRegistry(t)

	handle := frametest.MustAttach(t, reg, func() int { return 1 })
	defer handle.Close()

	var prevs []frame.Previous[int]
	frametest.MustListen(t, handle, func(_ int, prev frame.Previous[int]) {
		prevs = append(prevs, prev)
	})

	h.Step()
	handle.Update(func() int { return 2 })
	h.Step()

	if len(prevs) != 2 {
		t.Fatalf("listener calls = %d, want 2", len(prevs))
	}
	if prevs[1] != (frame.Previous[int]{Value: 1, Valid: true}) {
		t.Errorf("previous after Update = %+v, want {1 true}", prevs[1])
	}
}

func TestStopFreezesConsumer(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter int
	handle := frametest.MustAttach(t, reg, counterFn(&counter))
	defer handle.Close()

	var prevs []frame.Previous[int]
	frametest.MustListen(t, handle, func(_ int, prev frame.Previous[int]) {
		prevs = append(prevs, prev)
	})

	h.Advance(2)
	handle.Stop()
	if handle.Running() {
		t.Error("Running() should be false after Stop")
	}

	h.Advance(5)
	if counter != 2 {
		t.Errorf("tracked func ran while stopped: counter=%d, want 2", counter)
	}
	if len(prevs) != 2 {
		t.Errorf("listener ran while stopped: %d calls, want 2", len(prevs))
	}

	handle.Start()
	h.Step()
	if counter != 3 {
		t.Errorf("counter after Start = %d, want 3", counter)
	}
	if last := prevs[len(prevs)-1]; last != (frame.Previous[int]{Value: 2, Valid: true}) {
		t.Errorf("resumed previous = %+v, want frozen {2 true}", last)
	}
}

func TestAutoStartFalse(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter int
	handle, err := frame.Attach(reg, counterFn(&counter), frame.AutoStart(false))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer handle.Close()

	if !reg.Looping() {
		t.Error("loop should start even for a paused consumer")
	}

	h.Advance(3)
	if counter != 0 {
		t.Fatalf("paused consumer ran: counter=%d", counter)
	}

	handle.Start()
	h.Advance(3)
	if counter != 3 {
		t.Errorf("counter = %d, want 3", counter)
	}
}

func TestIndependentConsumers(t *testing.T) {
	reg, h := newTestRegistry(t)

	var a, b int
	ha := frametest.MustAttach(t, reg, counterFn(&a))
	hb := frametest.MustAttach(t, reg, counterFn(&b))
	defer ha.Close()
	defer hb.Close()

	var resA, resB int
	frametest.MustListen(t, ha, squareInto(&resA))
	frametest.MustListen(t, hb, squareInto(&resB))

	if ha.ID() == hb.ID() {
		t.Fatal("consumers share an id")
	}

	h.Advance(2)
	ha.Stop()
	h.Advance(2)

	if !hb.Running() {
		t.Error("stopping one consumer stopped the other")
	}
	if a != 2 || resA != 4 {
		t.Errorf("stopped consumer: counter=%d result=%d, want 2 4", a, resA)
	}
	if b != 4 || resB != 16 {
		t.Errorf("running consumer: counter=%d result=%d, want 4 16", b, resB)
	}
}

func TestClosedHandle(t *testing.T) {
	reg, _ := newTestRegistry(t)

	handle := frametest.MustAttach(t, reg, func() int { return 0 })
	id, err := handle.AddListener(func(int, frame.Previous[int]) {})
	if err != nil {
		t.Fatalf("AddListener: %v", err)
	}

	handle.Close()
	handle.Close() // idempotent

	if !handle.Closed() {
		t.Error("Closed() should be true")
	}
	if _, err := handle.AddListener(func(int, frame.Previous[int]) {}); !errors.Is(err, frame.ErrDetached) {
		t.Errorf("AddListener after Close: err=%v, want ErrDetached", err)
	}

	// These are no-ops on a closed handle.
	handle.RemoveListener(id)
	handle.RemoveListener("unknown")
	handle.Stop()
	handle.Start()
	handle.Update(func() int { return 1 })

	if handle.Running() {
		t.Error("closed handle should not report running")
	}
}

func TestRegistryCountTracksAttachedConsumers(t *testing.T) {
	reg, _ := newTestRegistry(t)

	var handles []*frame.Handle[int]
	for i := 0; i < 5; i++ {
		h, err := frame.Attach(reg, func() int { return 0 })
		if err != nil {
			t.Fatalf("Attach: %v", err)
		}
		handles = append(handles, h)
		if reg.Len() != i+1 {
			t.Fatalf("Len = %d, want %d", reg.Len(), i+1)
		}
	}

	handles[1].Close()
	handles[3].Close()
	if reg.Len() != 3 {
		t.Fatalf("Len = %d, want 3", reg.Len())
	}
	if _, ok := reg.Lookup(handles[1].ID()); ok {
		t.Error("closed consumer still in registry")
	}

	snap := reg.Snapshot()
	want := []string{handles[0].ID(), handles[2].ID(), handles[4].ID()}
	for i, info := range snap {
		if info.ID != want[i] {
			t.Errorf("snapshot[%d] = %s, want %s (attach order)", i, info.ID, want[i])
		}
	}
}

func TestLoopGoesIdleAfterLastClose(t *testing.T) {
	reg, h := newTestRegistry(t)

	if reg.Looping() {
		t.Fatal("new registry should be idle")
	}

	handle := frametest.MustAttach(t, reg, func() int { return 0 })
	if !reg.Looping() || h.Pending() != 1 {
		t.Fatalf("attach should request one frame: looping=%v pending=%d", reg.Looping(), h.Pending())
	}

	h.Advance(3)
	if h.Pending() != 1 {
		t.Fatalf("each frame should request exactly one more, pending=%d", h.Pending())
	}

	handle.Close()
	if !reg.Looping() {
		t.Error("loop only goes idle when a frame finds the registry empty")
	}

	h.Step()
	if reg.Looping() {
		t.Error("loop should be idle after an empty frame")
	}
	if h.Pending() != 0 {
		t.Errorf("idle loop left %d pending frames", h.Pending())
	}
	if len(h.Cancelled()) != 1 {
		t.Errorf("idle transition should cancel once, got %v", h.Cancelled())
	}
	if reg.Frames() != 3 {
		t.Errorf("Frames = %d, want 3", reg.Frames())
	}

	// Attaching again restarts the loop.
	again := frametest.MustAttach(t, reg, func() int { return 0 })
	defer again.Close()
	if !reg.Looping() || h.Pending() != 1 {
		t.Errorf("re-attach should restart loop: looping=%v pending=%d", reg.Looping(), h.Pending())
	}
}

func TestMutationsDuringFrameApplyNextFrame(t *testing.T) {
	reg, h := newTestRegistry(t)

	var counter int
	handle := frametest.MustAttach(t, reg, counterFn(&counter))
	defer handle.Close()

	lateCalls := 0
	frametest.MustListen(t, handle, func(int, frame.Previous[int]) {
		if lateCalls == 0 && counter == 1 {
			frametest.MustListen(t, handle, func(int, frame.Previous[int]) { lateCalls++ })
		}
	})

	h.Step()
	if lateCalls != 0 {
		t.Fatalf("listener added mid-frame ran in the same frame")
	}
	h.Step()
	if lateCalls != 1 {
		t.Errorf("late listener calls = %d, want 1", lateCalls)
	}
}

func TestCloseDuringFrameSkipsConsumer(t *testing.T) {
	reg, h := newTestRegistry(t)

	var bCalls int
	var hb *frame.Handle[int]
	ha := frametest.MustAttach(t, reg, func() int {
		hb.Close()
		return 0
	})
	defer ha.Close()
	hb = frametest.MustAttach(t, reg, func() int {
		bCalls++
		return 0
	})

	h.Step()
	if bCalls != 0 {
		t.Errorf("consumer closed earlier in the frame was evaluated %d times", bCalls)
	}
}

func TestAttachFunc(t *testing.T) {
	reg, h := newTestRegistry(t)

	runs := 0
	handle, err := frame.AttachFunc(reg, func() { runs++ })
	if err != nil {
		t.Fatalf("AttachFunc: %v", err)
	}

	h.Advance(2)
	handle.Stop()
	h.Advance(2)
	handle.Start()
	h.Step()
	handle.Close()
	h.Step()

	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
}

func TestAttachValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := frame.Attach[int](reg, nil); !errors.Is(err, frame.ErrNilTrackedFunc) {
		t.Errorf("nil tracked func: err=%v", err)
	}
	if _, err := frame.AttachFunc(reg, nil); !errors.Is(err, frame.ErrNilTrackedFunc) {
		t.Errorf("nil func: err=%v", err)
	}

	_, err := frame.Attach(reg, func() int { return 0 },
		frame.ShouldInvoke(func(string, frame.Previous[string]) bool { return true }))
	if !errors.Is(err, frame.ErrPredicateType) {
		t.Errorf("mismatched predicate: err=%v, want ErrPredicateType", err)
	}
	if reg.Len() != 0 {
		t.Errorf("failed attach left %d entries", reg.Len())
	}

	handle := frametest.MustAttach(t, reg, func() int { return 0 })
	defer handle.Close()
	if _, err := handle.AddListener(nil); !errors.Is(err, frame.ErrNilListener) {
		t.Errorf("nil listener: err=%v", err)
	}
}

func TestPanicIsolation(t *testing.T) {
	var reported []*frame.PanicError
	reg, h := newTestRegistry(t, frame.WithPanicHandler(func(err *frame.PanicError) {
		reported = append(reported, err)
	}))

	bad := frametest.MustAttach(t, reg, func() int { return 1 })
	defer bad.Close()
	frametest.MustListen(t, bad, func(int, frame.Previous[int]) { panic("boom") })

	var good int
	goodHandle := frametest.MustAttach(t, reg, counterFn(&good))
	defer goodHandle.Close()

	h.Advance(2)

	if good != 2 {
		t.Errorf("healthy consumer ran %d times, want 2", good)
	}
	if len(reported) != 2 {
		t.Fatalf("reported %d panics, want 2", len(reported))
	}
	p := reported[0]
	if p.ConsumerID != bad.ID() || p.Phase != frame.PhaseListener || p.Value != "boom" || p.Frame != 1 {
		t.Errorf("unexpected panic report: %+v", p)
	}
	if p.Stack == "" {
		t.Error("panic report has no stack")
	}

	info, _ := reg.Lookup(bad.ID())
	if info.HasPrevious {
		t.Error("previous value should not advance when evaluation panics")
	}
}

func TestPanicErrorUnwrap(t *testing.T) {
	sentinel := errors.New("tracked failure")
	var reported *frame.PanicError
	reg, h := newTestRegistry(t, frame.WithPanicHandler(func(err *frame.PanicError) {
		reported = err
	}))

	handle := frametest.MustAttach(t, reg, func() int { panic(sentinel) })
	defer handle.Close()
	h.Step()

	if reported == nil {
		t.Fatal("panic not reported")
	}
	if reported.Phase != frame.PhaseTracked {
		t.Errorf("phase = %s, want tracked", reported.Phase)
	}
	if !errors.Is(reported, sentinel) {
		t.Error("PanicError should unwrap to the panic value")
	}
}

func TestPanicPropagatesWhenNotRecovering(t *testing.T) {
	reg, h := newTestRegistry(t, frame.WithRecoverPanics(false))

	handle := frametest.MustAttach(t, reg, func() int { panic("boom") })
	defer handle.Close()

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
		}()
		h.Step()
	}()

	if h.Pending() != 1 {
		t.Errorf("next frame should be requested before evaluation, pending=%d", h.Pending())
	}
}

type recordingObserver struct {
	frame.NopObserver

	mu        sync.Mutex
	loop      []bool
	consumers []int
	stats     []frame.FrameStats
	failures  int
}

func (o *recordingObserver) LoopChanged(looping bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loop = append(o.loop, looping)
}

func (o *recordingObserver) ConsumersChanged(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consumers = append(o.consumers, n)
}

func (o *recordingObserver) FrameFinished(_ context.Context, stats frame.FrameStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = append(o.stats, stats)
}

func (o *recordingObserver) ConsumerFailed(context.Context, *frame.PanicError) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
}

func TestObserverReceivesFrameStats(t *testing.T) {
	obs := &recordingObserver{}
	reg, h := newTestRegistry(t, frame.WithObserver(frame.Observers(obs, nil)))

	var counter int
	running := frametest.MustAttach(t, reg, counterFn(&counter))
	frametest.MustListen(t, running, func(int, frame.Previous[int]) {})
	frametest.MustListen(t, running, func(int, frame.Previous[int]) {})
	paused := frametest.MustAttach(t, reg, func() int { return 0 }, frame.AutoStart(false))
	failing := frametest.MustAttach(t, reg, func() int { panic("x") })

	h.Step()
	running.Close()
	paused.Close()
	failing.Close()
	h.Step()

	if len(obs.stats) != 1 {
		t.Fatalf("got %d frame stats, want 1", len(obs.stats))
	}
	s := obs.stats[0]
	if s.Frame != 1 || s.Consumers != 3 || s.Evaluated != 1 || s.Skipped != 1 ||
		s.Notified != 1 || s.ListenerCalls != 2 || s.Failures != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
	if len(obs.loop) != 2 || !obs.loop[0] || obs.loop[1] {
		t.Errorf("loop transitions = %v, want [true false]", obs.loop)
	}
	wantCounts := []int{1, 2, 3, 2, 1, 0}
	if len(obs.consumers) != len(wantCounts) {
		t.Fatalf("consumer counts = %v, want %v", obs.consumers, wantCounts)
	}
	for i := range wantCounts {
		if obs.consumers[i] != wantCounts[i] {
			t.Fatalf("consumer counts = %v, want %v", obs.consumers, wantCounts)
		}
	}
}

// gatedObserver blocks inside the first LoopChanged(false) until released.
type gatedObserver struct {
	frame.NopObserver

	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu   sync.Mutex
	loop []bool
	n    []int
}

func (o *gatedObserver) LoopChanged(looping bool) {
	if !looping {
		o.once.Do(func() {
			close(o.entered)
			<-o.release
		})
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loop = append(o.loop, looping)
}

func (o *gatedObserver) ConsumersChanged(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.n = append(o.n, n)
}

func TestStateEventsFollowRegistryOrder(t *testing.T) {
	obs := &gatedObserver{entered: make(chan struct{}), release: make(chan struct{})}
	reg, h := newTestRegistry(t, frame.WithObserver(obs))

	first := frametest.MustAttach(t, reg, func() int { return 0 })
	h.Step()
	first.Close()

	// The empty frame goes idle and its observer call blocks.
	stepped := make(chan struct{})
	go func() {
		defer close(stepped)
		h.Step()
	}()
	<-obs.entered

	// A new consumer restarts the loop while the idle event is in flight.
	attached := make(chan *frame.Handle[int], 1)
	go func() {
		handle, err := frame.Attach(reg, func() int { return 1 })
		if err != nil {
			t.Errorf("Attach: %v", err)
		}
		attached <- handle
	}()
	deadline := time.Now().Add(5 * time.Second)
	for h.Pending() == 0 {
		if time.Now().After(deadline) {
			close(obs.release)
			t.Fatal("Attach did not request a frame")
		}
		time.Sleep(time.Millisecond)
	}

	close(obs.release)
	<-stepped
	second := <-attached
	if second != nil {
		defer second.Close()
	}

	if !reg.Looping() {
		t.Fatal("registry should be looping after the second attach")
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if last := obs.loop[len(obs.loop)-1]; !last {
		t.Errorf("loop events = %v, last should match the looping registry", obs.loop)
	}
	if last := obs.n[len(obs.n)-1]; last != reg.Len() {
		t.Errorf("consumer counts = %v, last should be %d", obs.n, reg.Len())
	}
}
