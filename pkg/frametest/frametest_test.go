package frametest

import (
	"context"
	"fmt"
	"testing"

	"github.com/vango-dev/framehook/pkg/frame"
)

// fakeTB records failures and cleanups instead of acting on them.
type fakeTB struct {
	testing.TB
	errors   []string
	cleanups []func()
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

func (f *fakeTB) runCleanups() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

func TestCollectRecordsValuesAndPrevious(t *testing.T) {
	env := NewEnv(t).Build()

	n := 0
	h := MustAttach(t, env.Registry, func() int { n++; return n / 2 })
	calls := Collect(t, h)

	env.Host.Advance(4)

	ExpectValues(t, calls, 0, 1, 2)
	all := calls.All()
	if all[0].Previous.Valid {
		t.Error("first call should have no previous value")
	}
	if !all[1].Previous.Valid || all[1].Previous.Value != 0 {
		t.Errorf("second call previous = %+v, want {0 true}", all[1].Previous)
	}

	calls.Reset()
	ExpectNoCalls(t, calls)
}

func TestEnvWithObserver(t *testing.T) {
	obs := &frameCounter{}
	env := NewEnv(t).WithObserver(obs).Build()

	MustAttach(t, env.Registry, func() int { return 1 })
	env.Host.Advance(3)

	if obs.finished != 3 {
		t.Errorf("observed frames = %d, want 3", obs.finished)
	}
}

func TestEnvReportsLeakedConsumers(t *testing.T) {
	ft := &fakeTB{TB: t}
	env := NewEnv(ft).Build()

	h, err := frame.AttachFunc(env.Registry, func() {})
	if err != nil {
		t.Fatalf("AttachFunc: %v", err)
	}
	ft.runCleanups()
	if len(ft.errors) != 1 {
		t.Fatalf("errors = %v, want one leak report", ft.errors)
	}
	h.Close()
}

func TestEnvAllowLeaks(t *testing.T) {
	ft := &fakeTB{TB: t}
	env := NewEnv(ft).AllowLeaks().Build()

	h, err := frame.AttachFunc(env.Registry, func() {})
	if err != nil {
		t.Fatalf("AttachFunc: %v", err)
	}
	defer h.Close()
	ft.runCleanups()
	if len(ft.errors) != 0 {
		t.Errorf("errors = %v, want none", ft.errors)
	}
}

func TestMustAttachClosesOnCleanup(t *testing.T) {
	ft := &fakeTB{TB: t}
	env := NewEnv(ft).Build()

	h := MustAttach(ft, env.Registry, func() string { return "x" })
	ft.runCleanups()

	if !h.Closed() {
		t.Error("handle should be closed by cleanup")
	}
	if len(ft.errors) != 0 {
		t.Errorf("errors = %v, want none", ft.errors)
	}
}

func TestExpectValuesReportsMismatch(t *testing.T) {
	ft := &fakeTB{TB: t}
	calls := &Calls[int]{}
	calls.Listener()(1, frame.Previous[int]{})

	ExpectValues(ft, calls, 2)
	ExpectNoCalls(ft, calls)
	if len(ft.errors) != 2 {
		t.Errorf("errors = %v, want two failures", ft.errors)
	}
}

type frameCounter struct {
	frame.NopObserver
	finished int
}

func (c *frameCounter) FrameFinished(_ context.Context, _ frame.FrameStats) {
	c.finished++
}

func TestMustListenReturnsID(t *testing.T) {
	env := NewEnv(t).Build()

	h := MustAttach(t, env.Registry, func() int { return 7 })
	var got []int
	id := MustListen(t, h, func(v int, _ frame.Previous[int]) { got = append(got, v) })
	if id == "" {
		t.Fatal("listener id is empty")
	}

	env.Host.Step()
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("listener saw %v, want [7]", got)
	}
	h.RemoveListener(id)
	env.Host.Step()
	if len(got) != 1 {
		t.Errorf("removed listener still ran: %v", got)
	}
}
