// Package frame provides the per-frame scheduling registry.
//
// Many independent consumers want a function evaluated on every display
// refresh. Instead of each consumer subscribing to the host's refresh timer,
// all of them are registered in one Registry, which holds a single frame
// request at a time and evaluates every running consumer once per frame.
//
// # Core Types
//
// Registry owns the scheduling table and the frame loop:
//
//	reg := frame.NewRegistry(host.NewTicker(time.Second / 60))
//
// Handle is the per-consumer binding returned by Attach:
//
//	h, err := frame.Attach(reg, func() int { return scroll.Offset() })
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	id, err := h.AddListener(func(v int, prev frame.Previous[int]) {
//	    header.SetShadow(v > 0)
//	})
//
// Listeners only run when the consumer's ChangeFunc approves the new value.
// The default, ValueChanged, fires on the first frame and whenever the value
// differs from the previous frame:
//
//	frame.Attach(reg, fn, frame.ShouldInvoke(func(next int, prev frame.Previous[int]) bool {
//	    return prev.Valid && prev.Value == 2 && next == 3
//	}))
//
// # Frame Loop
//
// The loop is demand driven. Attaching to an idle registry requests a frame.
// Each frame first requests the next one, then evaluates consumers in attach
// order. A frame that finds the registry empty cancels its request and the
// loop goes idle until the next Attach.
//
// # Concurrency
//
// Handles may be used from any goroutine. Consumers are evaluated serially on
// whatever goroutine the Host runs callbacks on, and no two frames overlap.
// Changes made while a frame is running are seen by the next frame. Tracked
// functions and listeners should stay cheap: a slow one delays every other
// consumer in the same frame.
//
// # Failures
//
// By default a panic in a tracked function, ChangeFunc or listener is
// recovered and reported as a *PanicError; the remaining consumers still run.
// WithRecoverPanics(false) lets the panic escape the frame callback instead.
package frame
