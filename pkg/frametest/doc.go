// Package frametest provides testing helpers for code built on frame
// registries.
//
// The frametest package removes the boilerplate of wiring a registry to a
// manual host and of recording listener calls.
//
// # Quick Start
//
//	func TestScrollListener(t *testing.T) {
//	    env := frametest.NewEnv(t).Build()
//	    h := frametest.MustAttach(t, env.Registry, scroll.Offset)
//	    calls := frametest.Collect(t, h)
//
//	    env.Host.Advance(3)
//	    frametest.ExpectValues(t, calls, 0, 40, 80)
//	}
//
// # Fluent Environment Builder
//
//	env := frametest.NewEnv(t).
//	    WithObserver(recorder).
//	    WithRegistryOptions(frame.WithRecoverPanics(false)).
//	    Build()
//
// Build registers a cleanup that fails the test if consumers are still
// attached when it ends, unless AllowLeaks was called.
package frametest
